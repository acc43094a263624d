// Package reducer implements the named mutation procedures. Every
// procedure validates, then stages its row changes inside one unit of
// work; a failure anywhere discards everything. Successful commits that
// touched rows trigger a synchronous view publication, so per-caller
// delta streams observe commit order.
package reducer

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"chat-core/domain"
	"chat-core/store"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Publisher is notified after each commit that changed rows. Wired to
// the view engine; nil disables publication (tests, tooling).
type Publisher interface {
	Publish()
}

// Moderator rewrites message bodies before they are stored. Optional.
type Moderator interface {
	Censor(body string) string
}

type Engine struct {
	// mu makes procedure+publication one ordered step. The store has
	// its own lock, but delta ordering needs commit and Publish to run
	// back to back.
	mu        sync.Mutex
	log       *slog.Logger
	store     *store.Store
	publisher Publisher
	moderator Moderator
	now       func() time.Time
}

var validate = validator.New()

func NewEngine(log *slog.Logger, st *store.Store, publisher Publisher, moderator Moderator) *Engine {
	return &Engine{
		log:       log,
		store:     st,
		publisher: publisher,
		moderator: moderator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the commit timestamp source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// write runs one procedure as an atomic unit and publishes view deltas
// on success.
func (e *Engine) write(caller domain.Identity, fn func(tx *store.Tx) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Write(caller, e.now(), fn); err != nil {
		return err
	}
	if e.publisher != nil {
		e.publisher.Publish()
	}
	return nil
}

// link adds the user-group pair to both sides of the membership
// relation. It and unlink are the only code that touches both tables,
// which keeps G.ID ∈ U.Groups ⟺ U.Identity ∈ G.Users enforced in one
// place. Set semantics: linking an existing pair changes nothing.
func link(user *domain.User, group *domain.Group) {
	if !user.MemberOf(group.ID) {
		user.Groups = append(user.Groups, group.ID)
	}
	if !group.HasMember(user.Identity) {
		group.Users = append(group.Users, user.Identity)
	}
}

// unlink removes the pair from both sides.
func unlink(user *domain.User, group *domain.Group) {
	user.Groups = lo.Without(user.Groups, group.ID)
	group.Users = lo.Without(group.Users, user.Identity)
}

// trimName normalizes an optional display name: surrounding whitespace
// is dropped and an empty result is stored as absent.
func trimName(name *string) *string {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
