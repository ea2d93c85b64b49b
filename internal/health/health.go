// Package health runs diagnostic checks against the vault backend without unlocking it.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/koyif/securevault/internal/lock"
	"github.com/koyif/securevault/internal/persistence"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"

	// StatusUnhealthy indicates the component is unusable.
	StatusUnhealthy Status = "unhealthy"

	// StatusDegraded indicates the component works but needs attention.
	StatusDegraded Status = "degraded"
)

// Check represents a health check result for a component.
type Check struct {
	Name     string         `json:"name" yaml:"name"`
	Status   Status         `json:"status" yaml:"status"`
	Message  string         `json:"message,omitempty" yaml:"message,omitempty"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
	Details  map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Report represents the overall health status.
type Report struct {
	Status    Status           `json:"status" yaml:"status"`
	Timestamp time.Time        `json:"timestamp" yaml:"timestamp"`
	Checks    map[string]Check `json:"checks" yaml:"checks"`
	Version   string           `json:"version,omitempty" yaml:"version,omitempty"`
}

// Names returns the check names in sorted order.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for name := range r.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Checker defines the interface for health checks.
type Checker interface {
	Check(ctx context.Context) Check
}

// Service manages health checks.
type Service struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	version  string
}

// NewService creates a new health check service.
func NewService(version string) *Service {
	return &Service{
		checkers: make(map[string]Checker),
		version:  version,
	}
}

// NewVaultService registers the storage and PIN checks for port, plus a connection
// check when the port can be pinged.
func NewVaultService(version string, port persistence.Port, gate *lock.Gate) *Service {
	s := NewService(version)
	s.RegisterChecker("storage", NewStorageChecker(port))
	s.RegisterChecker("pin", NewPINChecker(port, gate))
	if p, ok := port.(Pinger); ok {
		s.RegisterChecker("connection", NewPingChecker(p))
	}
	return s
}

// RegisterChecker adds a new health checker.
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// CheckHealth runs all health checks and returns a report.
func (s *Service) CheckHealth(ctx context.Context) Report {
	s.mu.RLock()
	checkers := make(map[string]Checker, len(s.checkers))
	for name, checker := range s.checkers {
		checkers[name] = checker
	}
	s.mu.RUnlock()

	checks := make(map[string]Check, len(checkers))
	overallStatus := StatusHealthy

	for name, checker := range checkers {
		check := checker.Check(ctx)
		checks[name] = check

		if check.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		} else if check.Status == StatusDegraded && overallStatus != StatusUnhealthy {
			overallStatus = StatusDegraded
		}
	}

	return Report{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
		Version:   s.version,
	}
}

// Pinger is implemented by ports backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker checks that the backend connection is alive.
type PingChecker struct {
	pinger Pinger
}

// NewPingChecker creates a new connection checker.
func NewPingChecker(p Pinger) *PingChecker {
	return &PingChecker{pinger: p}
}

// Check pings the backend.
func (c *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.pinger.Ping(ctx)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:     "connection",
			Status:   StatusUnhealthy,
			Message:  fmt.Sprintf("ping failed: %v", err),
			Duration: duration,
		}
	}

	return Check{
		Name:     "connection",
		Status:   StatusHealthy,
		Message:  "backend reachable",
		Duration: duration,
	}
}

// Stored entries formats.
const (
	FormatAbsent    = "absent"
	FormatPlaintext = "plaintext"
	FormatEncrypted = "encrypted"
)

// StorageChecker inspects the stored entries collection.
type StorageChecker struct {
	port persistence.Port
}

// NewStorageChecker creates a new storage checker.
func NewStorageChecker(port persistence.Port) *StorageChecker {
	return &StorageChecker{port: port}
}

// Check reads the entries key and reports its format. Encrypted payloads are not opened.
func (c *StorageChecker) Check(ctx context.Context) Check {
	start := time.Now()
	format, details, err := entriesFormat(ctx, c.port)
	duration := time.Since(start)

	if err != nil {
		return Check{
			Name:     "storage",
			Status:   StatusUnhealthy,
			Message:  err.Error(),
			Duration: duration,
		}
	}

	message := "entries readable"
	if format == FormatAbsent {
		message = "no entries stored yet"
	}

	return Check{
		Name:     "storage",
		Status:   StatusHealthy,
		Message:  message,
		Duration: duration,
		Details:  details,
	}
}

// PINChecker reports whether a PIN protects the vault and whether stored entries match.
type PINChecker struct {
	port persistence.Port
	gate *lock.Gate
}

// NewPINChecker creates a new PIN checker.
func NewPINChecker(port persistence.Port, gate *lock.Gate) *PINChecker {
	return &PINChecker{port: port, gate: gate}
}

// Check inspects the PIN record.
func (c *PINChecker) Check(ctx context.Context) Check {
	start := time.Now()

	set, err := c.gate.IsSet(ctx)
	if err != nil {
		return Check{
			Name:     "pin",
			Status:   StatusUnhealthy,
			Message:  err.Error(),
			Duration: time.Since(start),
		}
	}

	if !set {
		return Check{
			Name:     "pin",
			Status:   StatusDegraded,
			Message:  "no PIN set, entries are stored in cleartext",
			Duration: time.Since(start),
			Details:  map[string]any{"pin_set": false},
		}
	}

	sealed, err := c.gate.Sealed(ctx)
	if err != nil {
		return Check{
			Name:     "pin",
			Status:   StatusUnhealthy,
			Message:  err.Error(),
			Duration: time.Since(start),
		}
	}

	format, _, err := entriesFormat(ctx, c.port)
	if err == nil && format == FormatPlaintext {
		if sealed {
			return Check{
				Name:     "pin",
				Status:   StatusUnhealthy,
				Message:  "entries were replaced with cleartext after the vault was sealed",
				Duration: time.Since(start),
				Details:  map[string]any{"pin_set": true, "sealed": true},
			}
		}
		return Check{
			Name:     "pin",
			Status:   StatusDegraded,
			Message:  "PIN set but entries are still in cleartext, the next unlock will seal them",
			Duration: time.Since(start),
			Details:  map[string]any{"pin_set": true, "sealed": false},
		}
	}

	return Check{
		Name:     "pin",
		Status:   StatusHealthy,
		Message:  "PIN set, entries encrypted at rest",
		Duration: time.Since(start),
		Details:  map[string]any{"pin_set": true},
	}
}

// entriesFormat classifies the raw entries value without decrypting it.
func entriesFormat(ctx context.Context, port persistence.Port) (string, map[string]any, error) {
	data, err := port.Load(ctx, persistence.KeyEntries)
	if errors.Is(err, persistence.ErrNotFound) {
		return FormatAbsent, map[string]any{"format": FormatAbsent}, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to read entries: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err == nil {
		return FormatPlaintext, map[string]any{
			"format":  FormatPlaintext,
			"entries": len(entries),
			"bytes":   len(data),
		}, nil
	}

	if persistence.IsSealed(data) {
		var env struct {
			Algorithm string `json:"alg"`
		}
		_ = json.Unmarshal(data, &env)
		return FormatEncrypted, map[string]any{
			"format":    FormatEncrypted,
			"algorithm": env.Algorithm,
			"bytes":     len(data),
		}, nil
	}

	return "", nil, errors.New("stored entries are neither a JSON array nor an encrypted envelope")
}
