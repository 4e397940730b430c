package registry

import (
	"fmt"
	"log"
	"sort"

	"github.com/st3v3nmw/raftcheck/internal/scenario"
)

func init() {
	log.SetFlags(0)
}

var families = make(map[string]*Family)

// Named is a generated scenario paired with its file name.
type Named struct {
	Filename string
	Scenario *scenario.Scenario
}

// Sweep holds the parameters every family enumerates over.
type Sweep struct {
	LeaderMaxServers   int `yaml:"leader_max_servers"`
	LogServerVariants  int `yaml:"log_server_variants"`
	LogClientVariants  int `yaml:"log_client_variants"`
	LogSubdivisions    int `yaml:"log_subdivisions"`
	CrashMaxServers    int `yaml:"crash_max_servers"`
	RecoveryMaxServers int `yaml:"recovery_max_servers"`
}

// DefaultSweep returns the regression matrix parameters.
func DefaultSweep() Sweep {
	return Sweep{
		LeaderMaxServers:   20,
		LogServerVariants:  2,
		LogClientVariants:  2,
		LogSubdivisions:    3,
		CrashMaxServers:    15,
		RecoveryMaxServers: 15,
	}
}

type FamilyFunc func(Sweep) []Named

type Family struct {
	Key     string
	Name    string
	Summary string
	Fn      FamilyFunc
}

func RegisterFamily(key string, family *Family) {
	if family.Fn == nil {
		log.Fatalf("Cannot register family %s without a generator.", key)
	}

	family.Key = key
	families[key] = family
}

func GetFamily(key string) (*Family, error) {
	family, exists := families[key]
	if !exists {
		return nil, fmt.Errorf("family %s not found", key)
	}

	return family, nil
}

// Keys returns the registered family keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(families))
	for key := range families {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func GetAllFamilies() map[string]*Family {
	return families
}
