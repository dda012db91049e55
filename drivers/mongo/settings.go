package mongo

import (
	"github.com/timzifer/docstore/config"
)

// Settings tune the MongoDB client beyond what the connection URI carries.
// They are decoded from the options mapping of a client registration;
// unknown keys are ignored.
type Settings struct {
	AppName                string           `yaml:"app_name,omitempty"`
	ReplicaSet             string           `yaml:"replica_set,omitempty"`
	Direct                 *bool            `yaml:"direct,omitempty"`
	ConnectTimeout         *config.Duration `yaml:"connect_timeout,omitempty"`
	ServerSelectionTimeout *config.Duration `yaml:"server_selection_timeout,omitempty"`
	MaxPoolSize            *uint64          `yaml:"max_pool_size,omitempty"`
	MinPoolSize            *uint64          `yaml:"min_pool_size,omitempty"`
	RetryWrites            *bool            `yaml:"retry_writes,omitempty"`
	RetryReads             *bool            `yaml:"retry_reads,omitempty"`
}
