package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
)

// notifyChannel carries the owner id of every changed project as payload.
const notifyChannel = "projects_changed"

const schema = `
create table if not exists projects (
	seq         bigserial,
	id          text primary key,
	owner_id    text not null,
	name        text not null,
	description text not null,
	created_at  text not null
);
create index if not exists projects_owner_seq_idx on projects (owner_id, seq);
`

// PostgresStore keeps projects in Postgres. Writes go through pgx and
// announce themselves with pg_notify in the same transaction; subscribers
// LISTEN through a lib/pq Listener and reload the owner's rows.
type PostgresStore struct {
	pool *pgxpool.Pool
	dsn  string
	log  *slog.Logger
}

// NewPostgresStore creates a store on pool. dsn is used for the dedicated
// LISTEN connections.
func NewPostgresStore(pool *pgxpool.Pool, dsn string, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresStore{pool: pool, dsn: dsn, log: log}
}

// EnsureSchema creates the projects table when missing.
func (r *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (r *PostgresStore) Create(ctx context.Context, p domain.Project) (string, error) {
	for i := 0; i < 5; i++ {
		id, err := newTextID()
		if err != nil {
			return "", err
		}

		err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			const q = `
insert into projects (id, owner_id, name, description, created_at)
values ($1, $2, $3, $4, $5);
`
			if _, err := tx.Exec(ctx, q, id, p.OwnerID, p.Name, p.Description, p.CreatedAt); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `select pg_notify($1, $2);`, notifyChannel, p.OwnerID)
			return err
		})
		if err == nil {
			return id, nil
		}

		// unique violation on id → retry
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			continue
		}
		return "", err
	}

	return "", fmt.Errorf("failed to generate unique project id")
}

func (r *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `delete from projects where id = $1 and owner_id = $2;`, id, ownerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		_, err = tx.Exec(ctx, `select pg_notify($1, $2);`, notifyChannel, ownerID)
		return err
	})
}

// List returns the owner's projects in insertion order.
func (r *PostgresStore) List(ctx context.Context, ownerID string) ([]domain.Project, error) {
	const q = `
select id, owner_id, name, description, created_at
from projects
where owner_id = $1
order by seq;
`
	rows, err := r.pool.Query(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresStore) Subscribe(ctx context.Context, filter domain.Filter, onUpdate func([]domain.Project), onError func(error)) (Subscription, error) {
	if filter.OwnerID == "" {
		return nil, domain.ErrInvalidOwner
	}

	listener := pq.NewListener(r.dsn, 500*time.Millisecond, 30*time.Second, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.log.Warn("listener event", "event", ev, "error", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			cancel()
			if err := listener.Close(); err != nil {
				r.log.Debug("closing listener", "error", err)
			}
		})
	}

	go func() {
		deliver := func() bool {
			set, err := r.List(subCtx, filter.OwnerID)
			if err != nil {
				if subCtx.Err() == nil {
					onError(err)
					unsubscribe()
				}
				return false
			}
			onUpdate(set)
			return true
		}

		if !deliver() {
			return
		}

		ping := time.NewTicker(90 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-ping.C:
				go func() {
					if err := listener.Ping(); err != nil {
						r.log.Debug("listener ping", "error", err)
					}
				}()
			case n, ok := <-listener.Notify:
				if !ok {
					if subCtx.Err() == nil {
						onError(errFeedClosed)
						unsubscribe()
					}
					return
				}
				// A nil notification follows a reconnect: changes may have been missed.
				if n != nil && n.Extra != filter.OwnerID {
					continue
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return SubscriptionFunc(unsubscribe), nil
}
