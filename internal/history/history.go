// Package history keeps the outcome of every scenario run so scenarios whose result
// depends on timing show up across batches.
package history

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.etcd.io/bbolt"
)

var outcomesBucket = []byte("outcomes")

// Record is one scenario run.
type Record struct {
	RunID    string        `json:"run_id"`
	Path     string        `json:"path"`
	Outcome  string        `json:"outcome"`
	Passed   bool          `json:"passed"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// Summary aggregates the records of one scenario file.
type Summary struct {
	Path     string
	Runs     int
	Passes   int
	Last     string
	LastSeen time.Time
}

// Flaky reports whether the scenario both passed and failed in the recorded runs.
func (s Summary) Flaky() bool {
	return s.Passes > 0 && s.Passes < s.Runs
}

// Store is a bbolt-backed record store with one nested bucket per scenario path.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open history %s", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(outcomesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create outcomes bucket")
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// key orders records of one scenario by time, then run.
func key(r Record) []byte {
	return []byte(r.At.UTC().Format("20060102T150405.000000000Z") + "/" + r.RunID)
}

// Add stores r.
func (s *Store) Add(r Record) error {
	value, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(outcomesBucket).CreateBucketIfNotExists([]byte(r.Path))
		if err != nil {
			return errors.Wrapf(err, "create bucket for %s", r.Path)
		}

		return b.Put(key(r), value)
	})
}

// Records returns the records of one scenario, oldest first.
func (s *Store) Records(path string) ([]Record, error) {
	records := []Record{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(outcomesBucket).Bucket([]byte(path))
		if b == nil {
			return nil
		}

		return b.ForEach(func(_, v []byte) error {
			r, err := decode(v)
			if err != nil {
				return err
			}

			records = append(records, r)
			return nil
		})
	})

	return records, err
}

// Summaries aggregates every scenario in the store, sorted by path.
func (s *Store) Summaries() ([]Summary, error) {
	summaries := []Summary{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(outcomesBucket).ForEachBucket(func(name []byte) error {
			summary := Summary{Path: string(name)}

			err := tx.Bucket(outcomesBucket).Bucket(name).ForEach(func(_, v []byte) error {
				fields := gjson.GetManyBytes(v, "outcome", "passed", "at")
				if !fields[0].Exists() {
					return errors.Errorf("record of %s has no outcome", name)
				}

				summary.Runs++
				if fields[1].Bool() {
					summary.Passes++
				}

				// Keys are time-ordered, so the last one seen is the latest
				summary.Last = fields[0].String()
				summary.LastSeen = fields[2].Time()
				return nil
			})
			if err != nil {
				return err
			}

			summaries = append(summaries, summary)
			return nil
		})
	})

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Path < summaries[j].Path
	})

	return summaries, err
}

func decode(v []byte) (Record, error) {
	if !gjson.ValidBytes(v) {
		return Record{}, errors.New("corrupt history record")
	}

	fields := gjson.GetManyBytes(v, "run_id", "path", "outcome", "passed", "reason", "duration_ns", "at")
	return Record{
		RunID:    fields[0].String(),
		Path:     fields[1].String(),
		Outcome:  fields[2].String(),
		Passed:   fields[3].Bool(),
		Reason:   fields[4].String(),
		Duration: time.Duration(fields[5].Int()),
		At:       fields[6].Time(),
	}, nil
}
