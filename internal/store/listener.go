package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const listenRetryDelay = 5 * time.Second

// Listener relays Postgres NOTIFY messages on a single channel. Triggers on
// maintenance_requests and pnrs publish to it whenever a row changes.
type Listener struct {
	channel string
	logger  *logrus.Logger
	connect func(ctx context.Context) (listenConn, error)
}

// listenConn is the part of *pgx.Conn the listener uses.
type listenConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

// NewListener takes its connection out of pool for good. A connection still
// subscribed to the channel never goes back for other queries to use.
func NewListener(pool *pgxpool.Pool, channel string, logger *logrus.Logger) *Listener {
	return &Listener{
		channel: channel,
		logger:  logger,
		connect: func(ctx context.Context) (listenConn, error) {
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return nil, err
			}
			return conn.Hijack(), nil
		},
	}
}

// Run blocks until ctx is done, calling onChange with the payload of every
// notification. Lost connections are re-established after a short pause.
func (l *Listener) Run(ctx context.Context, onChange func(payload string)) error {
	for {
		err := l.listen(ctx, onChange)
		if ctx.Err() != nil {
			return nil
		}

		l.logger.WithError(err).WithField("channel", l.channel).Warn("change listener interrupted, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(listenRetryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context, onChange func(payload string)) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			l.logger.WithError(err).Debug("failed to close listener connection")
		}
	}()

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.channel, err)
	}

	l.logger.WithField("channel", l.channel).Info("listening for changes")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		onChange(n.Payload)
	}
}
