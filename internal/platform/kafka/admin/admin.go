// Package admin bootstraps Kafka topics with kadm.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// TopicSpec describes a topic to create.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Configs           map[string]string
}

// EnsureTopics creates missing topics. Existing topics are left as they are.
func EnsureTopics(ctx context.Context, client *kgo.Client, specs ...TopicSpec) error {
	adm := kadm.NewClient(client)
	for _, spec := range specs {
		partitions := spec.Partitions
		if partitions <= 0 {
			partitions = 1
		}
		rf := spec.ReplicationFactor
		if rf <= 0 {
			rf = -1 // broker default
		}
		var configs map[string]*string
		if len(spec.Configs) > 0 {
			configs = make(map[string]*string, len(spec.Configs))
			for k, v := range spec.Configs {
				configs[k] = kadm.StringPtr(v)
			}
		}
		resp, err := adm.CreateTopic(ctx, partitions, rf, configs, spec.Name)
		if err == nil {
			err = resp.Err
		}
		if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", spec.Name, err)
		}
	}
	return nil
}
