package output

import (
	"strings"

	"github.com/koyif/securevault/internal/passgen"
	"github.com/koyif/securevault/internal/vault"
)

// Mask replaces a hidden password.
const Mask = "••••••••"

// EntryView represents an entry for display
type EntryView struct {
	ID        string `json:"id" yaml:"id"`
	Category  string `json:"category" yaml:"category"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	Usecase   string `json:"usecase" yaml:"usecase"`
	Remark    string `json:"remark,omitempty" yaml:"remark,omitempty"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// NewEntryView builds the display form of e. The password is masked unless reveal is set.
func NewEntryView(e vault.Entry, reveal bool) EntryView {
	password := Mask
	if reveal {
		password = e.Password.Value
	}

	return EntryView{
		ID:        e.ID,
		Category:  string(e.Category),
		Username:  e.Username,
		Password:  password,
		Usecase:   string(e.Usecase),
		Remark:    e.Remark,
		CreatedAt: e.CreatedAt,
	}
}

// GeneratedView represents a generated password with its strength estimate.
type GeneratedView struct {
	Password string  `json:"password" yaml:"password"`
	Length   int     `json:"length" yaml:"length"`
	Bits     float64 `json:"entropy_bits" yaml:"entropy_bits"`
	Strength string  `json:"strength" yaml:"strength"`
}

// NewGeneratedView builds the display form of a generated password.
func NewGeneratedView(pw string) GeneratedView {
	bits, label := passgen.Strength(pw)
	return GeneratedView{
		Password: pw,
		Length:   len(pw),
		Bits:     float64(int(bits*10)) / 10,
		Strength: label,
	}
}

// StatsView represents per-category entry counts.
type StatsView struct {
	Website  int  `json:"website" yaml:"website"`
	Email    int  `json:"email" yaml:"email"`
	Username int  `json:"username" yaml:"username"`
	Total    int  `json:"total" yaml:"total"`
	PINSet   bool `json:"pin_set" yaml:"pin_set"`
}

// NewStatsView builds the display form of store statistics.
func NewStatsView(stats map[vault.Category]int, pinSet bool) StatsView {
	v := StatsView{
		Website:  stats[vault.CategoryWebsite],
		Email:    stats[vault.CategoryEmail],
		Username: stats[vault.CategoryUsername],
		PINSet:   pinSet,
	}
	v.Total = v.Website + v.Email + v.Username
	return v
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
