package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/koyif/securevault/internal/config"
	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/logger"
	"github.com/koyif/securevault/internal/persistence"
	"github.com/koyif/securevault/internal/persistence/backend"
	"github.com/koyif/securevault/internal/session"
)

// Env lazily opens the storage backend, the PIN gate and the vault session for the
// commands of one process.
type Env struct {
	getCfg func() *config.Config
	logger *zap.Logger

	// openPort is replaced in tests.
	openPort func(ctx context.Context, cfg backend.Config, logger *zap.Logger) (persistence.Port, error)

	mu     sync.Mutex
	port   persistence.Port
	gate   *lock.Gate
	sess   *session.Session
	warned bool
}

// NewEnv creates an Env. Nothing is opened until a command asks for it. A nil log
// means the global logger, resolved with the command context when storage is opened.
func NewEnv(getCfg func() *config.Config, log *zap.Logger) *Env {
	return &Env{
		getCfg:   getCfg,
		logger:   log,
		openPort: backend.Open,
	}
}

// Gate returns the PIN gate over the configured backend.
func (e *Env) Gate(ctx context.Context) (*lock.Gate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensurePort(ctx); err != nil {
		return nil, err
	}
	return e.gate, nil
}

// Session returns the open vault session, unlocking it on first use. The PIN comes from
// configuration (--pin, VAULT_PIN) or, when a PIN is set and none was given, a prompt.
func (e *Env) Session(ctx context.Context) (*session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sess != nil {
		return e.sess, nil
	}

	if err := e.ensurePort(ctx); err != nil {
		return nil, err
	}

	cfg := e.getCfg()
	pin := cfg.PIN
	if pin == "" {
		set, err := e.gate.IsSet(ctx)
		if err != nil {
			return nil, describe(err)
		}
		if set {
			pin, err = promptPIN("Vault PIN")
			if err != nil {
				return nil, err
			}
		}
	}

	sess, err := session.Open(ctx, e.port, e.gate, pin, e.logger)
	if err != nil {
		return nil, describe(err)
	}
	e.sess = sess

	if !sess.Encrypted() && !e.warned {
		e.warned = true
		logrus.Warn("No PIN is set: entries are stored in cleartext. Run 'vault pin set' to encrypt them.")
	}

	logrus.Debugf("Vault opened: driver=%s, entries=%d, encrypted=%t",
		cfg.Storage.Driver, sess.Store().Len(), sess.Encrypted())

	return sess, nil
}

// Close releases the session or, if none was opened, the bare backend.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	switch {
	case e.sess != nil:
		err = e.sess.Close()
	case e.port != nil:
		err = e.port.Close()
	}

	e.sess = nil
	e.port = nil
	e.gate = nil

	return err
}

// ensurePort must be called with e.mu held.
func (e *Env) ensurePort(ctx context.Context) error {
	if e.port != nil {
		return nil
	}

	cfg := e.getCfg()
	if cfg == nil {
		return errors.New("configuration not loaded")
	}

	if e.logger == nil {
		e.logger = logger.WithContext(ctx)
	}

	port, err := e.openPort(ctx, cfg.Backend(), e.logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	e.port = port
	e.gate = lock.NewGate(port, cfg.UnlockLimits(), e.logger)

	return nil
}

// Backend returns the raw storage port and the PIN gate without unlocking the vault.
func (e *Env) Backend(ctx context.Context) (persistence.Port, *lock.Gate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensurePort(ctx); err != nil {
		return nil, nil, err
	}
	return e.port, e.gate, nil
}
