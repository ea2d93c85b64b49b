package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koyif/securevault/internal/persistence"
)

func TestFilter_Match(t *testing.T) {
	e := Entry{
		Category: CategoryWebsite,
		Username: "Alice@Example.com",
		Usecase:  UsecaseGaming,
		Remark:   "Steam account",
	}

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"category only", Filter{Category: CategoryWebsite}, true},
		{"other category", Filter{Category: CategoryEmail}, false},
		{"usecase all", Filter{Category: CategoryWebsite, Usecase: UsecaseAll}, true},
		{"usecase match", Filter{Category: CategoryWebsite, Usecase: UsecaseGaming}, true},
		{"usecase mismatch", Filter{Category: CategoryWebsite, Usecase: UsecasePrivate}, false},
		{"search username any case", Filter{Category: CategoryWebsite, Search: "ALICE"}, true},
		{"search remark", Filter{Category: CategoryWebsite, Search: "steam"}, true},
		{"search miss", Filter{Category: CategoryWebsite, Search: "bob"}, false},
		{"all predicates", Filter{Category: CategoryWebsite, Usecase: UsecaseGaming, Search: "example"}, true},
		{"search matches but usecase does not", Filter{Category: CategoryWebsite, Usecase: UsecaseDefault, Search: "alice"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(e))
		})
	}
}

func TestStore_Filter(t *testing.T) {
	s := openStore(t, persistence.NewMemory())

	web1 := mustCreate(t, s, Draft{Category: CategoryWebsite, Username: "alice", Password: "p", Usecase: UsecaseGaming})
	mustCreate(t, s, Draft{Category: CategoryEmail, Username: "alice", Password: "p"})
	web2 := mustCreate(t, s, Draft{Category: CategoryWebsite, Username: "bob", Password: "p", Remark: "Alice's laptop"})
	web3 := mustCreate(t, s, Draft{Category: CategoryWebsite, Username: "carol", Password: "p", Usecase: UsecasePrivate})

	assert.Equal(t, []Entry{web1, web2, web3}, s.Filter(Filter{Category: CategoryWebsite, Usecase: UsecaseAll}))
	assert.Equal(t, []Entry{web1, web2}, s.Filter(Filter{Category: CategoryWebsite, Search: "alice"}))
	assert.Equal(t, []Entry{web3}, s.Filter(Filter{Category: CategoryWebsite, Usecase: UsecasePrivate}))

	none := s.Filter(Filter{Category: CategoryUsername})
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStore_FilterIsSubsetOfList(t *testing.T) {
	s := openStore(t, persistence.NewMemory())
	for _, c := range Categories() {
		for _, u := range Usecases() {
			mustCreate(t, s, Draft{Category: c, Username: string(c) + string(u), Password: "p", Usecase: u})
		}
	}

	all := s.List()
	for _, c := range Categories() {
		for _, u := range append(Usecases(), UsecaseAll) {
			for _, e := range s.Filter(Filter{Category: c, Usecase: u}) {
				assert.Contains(t, all, e)
				assert.Equal(t, c, e.Category)
			}
		}
	}
}
