package testutil

// Well-known mainnet program and sysvar addresses. They are valid base58
// ed25519 keys, which is all the wallet parser checks.
const (
	WalletA = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	WalletB = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	WalletC = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	WalletD = "So11111111111111111111111111111111111111112"
	WalletE = "SysvarRent111111111111111111111111111111111"
	WalletF = "Vote111111111111111111111111111111111111111"
	WalletG = "Stake11111111111111111111111111111111111111"
)
