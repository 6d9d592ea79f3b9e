package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	instanceStore *InstanceStore
	stepStore     *StepStore
	resultStore   *ResultStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB, such as
// a go-persistence-bun client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.instanceStore != nil && f.stepStore != nil && f.resultStore != nil {
		return nil
	}

	instanceStore, err := NewInstanceStore(f.db)
	if err != nil {
		return err
	}
	stepStore, err := NewStepStore(f.db)
	if err != nil {
		return err
	}
	resultStore, err := NewResultStore(f.db)
	if err != nil {
		return err
	}
	f.instanceStore = instanceStore
	f.stepStore = stepStore
	f.resultStore = resultStore
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) InstanceStore() *InstanceStore {
	if f == nil {
		return nil
	}
	return f.instanceStore
}

func (f *RepositoryFactory) StepStore() *StepStore {
	if f == nil {
		return nil
	}
	return f.stepStore
}

func (f *RepositoryFactory) ResultStore() *ResultStore {
	if f == nil {
		return nil
	}
	return f.resultStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
