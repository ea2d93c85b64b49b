package vault

import (
	"fmt"
	"strings"
	"time"
)

// Category is the top-level grouping of entries.
type Category string

const (
	CategoryWebsite  Category = "website"
	CategoryEmail    Category = "email"
	CategoryUsername Category = "username"
)

// Usecase is the secondary tag on an entry used for filtering.
type Usecase string

const (
	UsecaseDefault Usecase = "Default"
	UsecasePrivate Usecase = "Private"
	UsecaseGaming  Usecase = "Gaming"

	// UsecaseAll matches every usecase in a Filter. It is never stored on an entry.
	UsecaseAll Usecase = "all"
)

// TimeLayout is the ISO-8601 layout used for createdAt.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Categories returns all categories in display order.
func Categories() []Category {
	return []Category{CategoryWebsite, CategoryEmail, CategoryUsername}
}

// Usecases returns all usecases in display order.
func Usecases() []Usecase {
	return []Usecase{UsecaseDefault, UsecasePrivate, UsecaseGaming}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryWebsite, CategoryEmail, CategoryUsername:
		return true
	default:
		return false
	}
}

// Valid reports whether u is a known usecase. UsecaseAll is not a valid entry usecase.
func (u Usecase) Valid() bool {
	switch u {
	case UsecaseDefault, UsecasePrivate, UsecaseGaming:
		return true
	default:
		return false
	}
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", NewValidation("unknown category %q (expected one of: website, email, username)", s)
	}
	return c, nil
}

// ParseUsecase parses a usecase name case-insensitively. "all" yields UsecaseAll.
func ParseUsecase(s string) (Usecase, error) {
	trimmed := strings.TrimSpace(s)
	if strings.EqualFold(trimmed, string(UsecaseAll)) {
		return UsecaseAll, nil
	}
	for _, u := range Usecases() {
		if strings.EqualFold(trimmed, string(u)) {
			return u, nil
		}
	}
	return "", NewValidation("unknown usecase %q (expected one of: Default, Private, Gaming, all)", s)
}

// Password holds the secret value of an entry.
// IsEncrypted is reserved and always false for entries created by this package.
type Password struct {
	Value       string `json:"value" yaml:"value"`
	IsEncrypted bool   `json:"isEncrypted,omitempty" yaml:"is_encrypted,omitempty"`
}

// Entry is one stored credential record.
type Entry struct {
	ID        string   `json:"id" yaml:"id"`
	Category  Category `json:"category" yaml:"category"`
	Username  string   `json:"username" yaml:"username"`
	Password  Password `json:"password" yaml:"password"`
	Usecase   Usecase  `json:"usecase" yaml:"usecase"`
	Remark    string   `json:"remark,omitempty" yaml:"remark,omitempty"`
	CreatedAt string   `json:"createdAt" yaml:"created_at"`
}

// Created parses CreatedAt. Entries imported from other tools may carry any RFC 3339 form.
func (e Entry) Created() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid createdAt %q: %w", e.CreatedAt, err)
	}
	return t, nil
}

// Draft is the caller-supplied content of a new entry.
type Draft struct {
	Category Category
	Username string
	Password string
	Usecase  Usecase
	Remark   string
}

// Validate checks the required fields of a draft.
func (d Draft) Validate() error {
	return validateFields(d.Category, d.Username, d.Password, d.Usecase)
}

func validateFields(category Category, username, password string, usecase Usecase) error {
	if !category.Valid() {
		return NewValidation("invalid category %q", category)
	}
	if strings.TrimSpace(username) == "" {
		return NewValidation("username is required")
	}
	if password == "" {
		return NewValidation("password is required")
	}
	if usecase != "" && !usecase.Valid() {
		return NewValidation("invalid usecase %q", usecase)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
