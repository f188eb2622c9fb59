package store

import (
	"encoding/json"
	"fmt"
	"os"

	"go.etcd.io/bbolt"

	"github.com/perfuselab/pindrive/gpio"
)

type BBolt struct {
	db *bbolt.DB
}

const (
	bboltPindriveBucket = "pindrive"
	bboltPresetBucket   = "presets" // child of pindrive

	// pindrive keys
	bboltBackendKey       = "backend"
	bboltDefaultPresetKey = "default-preset"
)

// OpenBBolt opens a BBoltDB database at the given path and creates the needed buckets
// if they don't exist.
func OpenBBolt(path string, mode os.FileMode, options *bbolt.Options) (Store, error) {
	db, err := bbolt.Open(path, mode, options)
	if err != nil {
		return nil, fmt.Errorf("unable to open bbolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		pindriveBucket, err := tx.CreateBucketIfNotExists([]byte(bboltPindriveBucket))
		if err != nil {
			return fmt.Errorf("unable to create bucket %q: %w", bboltPindriveBucket, err)
		}

		_, err = pindriveBucket.CreateBucketIfNotExists([]byte(bboltPresetBucket))
		if err != nil {
			return fmt.Errorf("unable to create bucket %q: %w", bboltPresetBucket, err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create bbolt buckets: %w", err)
	}

	return &BBolt{
		db: db,
	}, nil
}

func (b *BBolt) Close() error {
	return b.db.Close()
}

func (b *BBolt) Preset(name string) (Preset, error) {
	var p Preset
	err := b.db.View(func(tx *bbolt.Tx) error {
		pindriveBucket := tx.Bucket([]byte(bboltPindriveBucket))
		presetBucket := pindriveBucket.Bucket([]byte(bboltPresetBucket))

		presetJSON := presetBucket.Get([]byte(name))
		if presetJSON == nil {
			return fmt.Errorf("preset does not exist")
		}

		if err := json.Unmarshal(presetJSON, &p); err != nil {
			return fmt.Errorf("unable to unmarshal preset JSON: %w", err)
		}

		return nil
	})
	if err != nil {
		return p, fmt.Errorf("unable to get preset %q: %w", name, err)
	}

	return p, nil
}

func (b *BBolt) ListPresets() ([]string, error) {
	names := make([]string, 0)

	err := b.db.View(func(tx *bbolt.Tx) error {
		pindriveBucket := tx.Bucket([]byte(bboltPindriveBucket))
		presetBucket := pindriveBucket.Bucket([]byte(bboltPresetBucket))

		err := presetBucket.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
		if err != nil {
			return fmt.Errorf("unable to iterate over preset bucket: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list presets: %w", err)
	}

	return names, nil
}

func (b *BBolt) PutPreset(name string, p Preset) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		presetJSON, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("unable to marshal preset: %w", err)
		}

		pindriveBucket := tx.Bucket([]byte(bboltPindriveBucket))
		presetBucket := pindriveBucket.Bucket([]byte(bboltPresetBucket))
		if err := presetBucket.Put([]byte(name), presetJSON); err != nil {
			return fmt.Errorf("unable to put preset %q: %w", name, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to update preset: %w", err)
	}

	return nil
}

func (b *BBolt) DefaultPreset() (string, error) {
	var def string

	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bboltPindriveBucket))
		def = string(bucket.Get([]byte(bboltDefaultPresetKey)))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to get default preset: %w", err)
	}

	return def, nil
}

func (b *BBolt) PutDefaultPreset(def string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bboltPindriveBucket))
		return bucket.Put([]byte(bboltDefaultPresetKey), []byte(def))
	})
	if err != nil {
		return fmt.Errorf("unable to put default preset: %w", err)
	}

	return nil
}

func (b *BBolt) BackendConfig() (gpio.Config, error) {
	var c gpio.Config
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bboltPindriveBucket))
		backendJSON := bucket.Get([]byte(bboltBackendKey))
		if backendJSON == nil {
			return fmt.Errorf("backend config does not exist")
		}

		if err := json.Unmarshal(backendJSON, &c); err != nil {
			return fmt.Errorf("unable to unmarshal backend config JSON: %w", err)
		}

		return nil
	})
	if err != nil {
		return c, fmt.Errorf("unable to get backend config: %w", err)
	}

	return c, nil
}

func (b *BBolt) PutBackendConfig(c gpio.Config) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		backendJSON, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("unable to marshal backend config: %w", err)
		}

		bucket := tx.Bucket([]byte(bboltPindriveBucket))
		if err := bucket.Put([]byte(bboltBackendKey), backendJSON); err != nil {
			return fmt.Errorf("unable to put backend config: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to update backend config: %w", err)
	}

	return nil
}
