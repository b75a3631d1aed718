package fetch

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/deskwatch/backend/internal/cache"
	"github.com/deskwatch/backend/internal/helpdesk"
	"github.com/deskwatch/backend/internal/models"
	"github.com/deskwatch/backend/internal/ratelimit"
)

// Source is the remote paginated API consumed by the orchestrator.
// *helpdesk.Client satisfies it.
type Source interface {
	ListTickets(ctx context.Context, page, perPage int) (helpdesk.Page[models.Ticket], error)
	ListAgents(ctx context.Context, page, perPage int) (helpdesk.Page[models.Agent], error)
	ListDepartments(ctx context.Context, page, perPage int) (helpdesk.Page[models.Department], error)
	ListGroups(ctx context.Context, page, perPage int) (helpdesk.Page[models.Group], error)
	ListContacts(ctx context.Context, page, perPage int) (helpdesk.Page[models.Contact], error)
	ListConversations(ctx context.Context, ticketID int64) ([]models.Conversation, error)
}

const (
	perPage           = 100
	defaultPageBudget = 30
	hardPageCap       = 40
	largeCollection   = 4000

	// Early-termination heuristic: once the pull is this large and the
	// last 90 days are already covered this well, further pages only add
	// history outside any analysis window.
	earlyStopMinTotal  = 1000
	earlyStopMinRecent = 600
	recentWindow       = 90 * 24 * time.Hour

	// Admission checks block briefly for the window to slide; longer
	// waits surface as a throttle instead.
	maxAdmissionWait = 2 * time.Second

	ticketsCacheKey   = "tickets_all"
	ticketsTTL        = 3 * time.Minute
	referenceTTL      = 10 * time.Minute
	conversationLimit = 15
)

// Fetcher assembles whole in-memory collections from the paginated remote
// source while staying inside the shared cache and rate budgets.
type Fetcher struct {
	Source      Source
	Cache       *cache.Cache
	Limiter     *ratelimit.Limiter
	Logger      zerolog.Logger
	MaxAttempts int
	BaseDelay   time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

func New(source Source, c *cache.Cache, l *ratelimit.Limiter, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		Source:      source,
		Cache:       c,
		Limiter:     l,
		Logger:      logger,
		MaxAttempts: helpdesk.DefaultMaxAttempts,
		BaseDelay:   helpdesk.DefaultBaseDelay,
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// admit blocks until the limiter accepts a call in the category, or
// converts an over-long wait into a throttle error with the wait hint.
func (f *Fetcher) admit(category ratelimit.Category) error {
	if f.Limiter.Allow(category) {
		return nil
	}
	wait := f.Limiter.WaitTime()
	if wait > maxAdmissionWait {
		return &helpdesk.ThrottleError{RetryAfter: wait}
	}
	f.sleep(wait)
	if !f.Limiter.Allow(category) {
		return &helpdesk.ThrottleError{RetryAfter: f.Limiter.WaitTime()}
	}
	return nil
}

func (f *Fetcher) ticketPage(ctx context.Context, page int) (helpdesk.Page[models.Ticket], error) {
	var result helpdesk.Page[models.Ticket]
	err := helpdesk.WithRetry(ctx, func(ctx context.Context) error {
		if err := f.admit(ratelimit.CategoryTickets); err != nil {
			return err
		}
		f.Limiter.Record(ratelimit.CategoryTickets)
		p, err := f.Source.ListTickets(ctx, page, perPage)
		if err != nil {
			return err
		}
		result = p
		return nil
	}, f.MaxAttempts, f.BaseDelay)
	return result, err
}

// pageBudget derives how many ticket pages one pull may spend. The
// reported total shrinks the default; a very large collection grows it
// proportionally up to the hard cap.
func pageBudget(meta helpdesk.Page[models.Ticket]) int {
	budget := defaultPageBudget
	if meta.TotalPages > 0 && meta.TotalPages < budget {
		budget = meta.TotalPages
	}
	if meta.TotalCount > largeCollection {
		needed := (meta.TotalCount + perPage - 1) / perPage
		if needed > budget {
			budget = needed
		}
		if budget > hardPageCap {
			budget = hardPageCap
		}
	}
	return budget
}

func (f *Fetcher) enoughRecent(tickets []models.Ticket) bool {
	if len(tickets) < earlyStopMinTotal {
		return false
	}
	cutoff := f.now().Add(-recentWindow)
	recent := 0
	for _, t := range tickets {
		if !t.CreatedAt.Before(cutoff) {
			recent++
		}
	}
	return recent >= earlyStopMinRecent
}

// FetchTickets returns the full ticket collection, serving from cache
// unless force is set. A failure on the first page is fatal; later pages
// degrade to whatever was already accumulated.
func (f *Fetcher) FetchTickets(ctx context.Context, force bool) ([]models.Ticket, error) {
	if !force {
		if v, ok := f.Cache.Get(ticketsCacheKey); ok {
			return v.([]models.Ticket), nil
		}
	}

	first, err := f.ticketPage(ctx, 1)
	if err != nil {
		return nil, err
	}
	tickets := first.Records
	budget := pageBudget(first)

	for page := 2; page <= budget && len(first.Records) == perPage; page++ {
		if first.TotalPages > 0 && page > first.TotalPages {
			break
		}
		if f.enoughRecent(tickets) {
			f.Logger.Debug().Int("pages", page-1).Int("tickets", len(tickets)).Msg("ticket pull stopped early, recent window covered")
			break
		}

		next, err := f.ticketPage(ctx, page)
		if err != nil {
			f.Logger.Warn().Err(err).Int("page", page).Int("kept", len(tickets)).Msg("ticket pagination halted, keeping fetched pages")
			break
		}
		tickets = append(tickets, next.Records...)
		if len(next.Records) < perPage {
			break
		}
	}

	f.Cache.Set(ticketsCacheKey, tickets, ticketsTTL)
	return tickets, nil
}

// fetchReference covers the simple collections, which are assumed to fit
// in two pages. A full second page means records past page two are left
// behind; a third fetch is deliberately not attempted.
func fetchReference[T any](f *Fetcher, ctx context.Context, key string, force bool, list func(context.Context, int, int) (helpdesk.Page[T], error)) []T {
	if !force {
		if v, ok := f.Cache.Get(key); ok {
			return v.([]T)
		}
	}

	call := func(page int) (helpdesk.Page[T], error) {
		var result helpdesk.Page[T]
		err := helpdesk.WithRetry(ctx, func(ctx context.Context) error {
			if err := f.admit(ratelimit.CategoryReference); err != nil {
				return err
			}
			f.Limiter.Record(ratelimit.CategoryReference)
			p, err := list(ctx, page, perPage)
			if err != nil {
				return err
			}
			result = p
			return nil
		}, f.MaxAttempts, f.BaseDelay)
		return result, err
	}

	first, err := call(1)
	if err != nil {
		f.Logger.Warn().Err(err).Str("collection", key).Msg("reference fetch failed, continuing with empty collection")
		return nil
	}
	records := first.Records
	if len(records) == perPage {
		second, err := call(2)
		if err != nil {
			f.Logger.Warn().Err(err).Str("collection", key).Msg("second reference page failed, keeping first")
		} else {
			records = append(records, second.Records...)
			if len(second.Records) == perPage {
				f.Logger.Warn().Str("collection", key).Msg("reference collection exceeds two pages, remainder not fetched")
			}
		}
	}

	f.Cache.Set(key, records, referenceTTL)
	return records
}

func (f *Fetcher) FetchAgents(ctx context.Context, force bool) []models.Agent {
	return fetchReference(f, ctx, "agents_all", force, f.Source.ListAgents)
}

func (f *Fetcher) FetchDepartments(ctx context.Context, force bool) []models.Department {
	return fetchReference(f, ctx, "departments_all", force, f.Source.ListDepartments)
}

func (f *Fetcher) FetchGroups(ctx context.Context, force bool) []models.Group {
	return fetchReference(f, ctx, "groups_all", force, f.Source.ListGroups)
}

func (f *Fetcher) FetchContacts(ctx context.Context, force bool) []models.Contact {
	return fetchReference(f, ctx, "contacts_all", force, f.Source.ListContacts)
}

// SampleFirstResponses estimates true first-response times for a bounded
// sample of the newest tickets by reading each ticket's first public
// conversation not authored by the requester. Errors skip the ticket; the
// caller falls back to coarser ticket-level timestamps.
func (f *Fetcher) SampleFirstResponses(ctx context.Context, tickets []models.Ticket) map[int64]time.Duration {
	sample := make([]models.Ticket, len(tickets))
	copy(sample, tickets)
	sort.Slice(sample, func(i, j int) bool {
		return sample[i].CreatedAt.After(sample[j].CreatedAt)
	})
	if len(sample) > conversationLimit {
		sample = sample[:conversationLimit]
	}

	times := map[int64]time.Duration{}
	for _, t := range sample {
		if err := f.admit(ratelimit.CategoryReference); err != nil {
			f.Logger.Debug().Err(err).Msg("conversation sampling stopped by rate budget")
			break
		}
		f.Limiter.Record(ratelimit.CategoryReference)
		convos, err := f.Source.ListConversations(ctx, t.ID)
		if err != nil {
			f.Logger.Debug().Err(err).Int64("ticket", t.ID).Msg("conversation fetch failed, skipping sample")
			continue
		}
		for _, c := range convos {
			if c.Private || c.UserID == t.RequesterID {
				continue
			}
			if d := c.CreatedAt.Sub(t.CreatedAt); d > 0 {
				times[t.ID] = d
			}
			break
		}
	}
	return times
}
