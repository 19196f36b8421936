// bolt - файловое хранилище сессии на bbolt (driver=bolt, по умолчанию).
package bolt

import (
	"context"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bktSession = []byte("session")

// Store хранит слоты в одном bucket; запись нескольких ключей - одна транзакция.
type Store struct {
	db        *bolt.DB
	closeFunc func() error
}

// New открывает (или создаёт) файл базы по пути path.
func New(path string) (*Store, error) {
	const op = "tokenstore.bolt.New"

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open bolt db: %w", op, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bktSession)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Store{db: db, closeFunc: db.Close}, nil
}

// NewTemp - хранилище во временном файле, удаляемом при Close.
func NewTemp() (*Store, error) {
	f, err := os.CreateTemp("", "leiturista-*.db")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	_ = f.Close()

	s, err := New(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	orig := s.closeFunc
	s.closeFunc = func() error {
		if err := orig(); err != nil {
			return err
		}
		return os.Remove(path)
	}

	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	const op = "tokenstore.bolt.Get"

	var (
		val string
		ok  bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktSession)
		if b == nil {
			return nil
		}

		// Значение живёт только внутри транзакции - копируем.
		if v := b.Get([]byte(key)); v != nil {
			val, ok = string(v), true
		}

		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return val, ok, nil
}

func (s *Store) Set(_ context.Context, kv map[string]string) error {
	const op = "tokenstore.bolt.Set"

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bktSession)
		if err != nil {
			return err
		}

		for k, v := range kv {
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	const op = "tokenstore.bolt.Delete"

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bktSession)
		if b == nil {
			return nil
		}

		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.closeFunc()
}
