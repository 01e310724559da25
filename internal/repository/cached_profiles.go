package repository

import (
	"context"
	"strconv"
	"strings"

	"mentor-matching/internal/common/logger"
	"mentor-matching/internal/matching"
)

// CachedProfiles serves profile snapshots through a SnapshotCache. Cache
// failures are logged and fall through to the underlying source.
type CachedProfiles struct {
	source ProfileSource
	cache  *SnapshotCache
	log    logger.Logger
}

func NewCachedProfiles(source ProfileSource, cache *SnapshotCache, log logger.Logger) *CachedProfiles {
	return &CachedProfiles{source: source, cache: cache, log: log}
}

func (p *CachedProfiles) FellowsByID(ctx context.Context, ids []string) ([]matching.FellowProfile, error) {
	// Order matters for fellows, so the key keeps it.
	key := SnapshotKey("fellows", strings.Join(ids, ","))
	return cached(ctx, p, key, func() ([]matching.FellowProfile, error) {
		return p.source.FellowsByID(ctx, ids)
	})
}

func (p *CachedProfiles) FellowsByCohort(ctx context.Context, year int) ([]matching.FellowProfile, error) {
	key := SnapshotKey("cohort", strconv.Itoa(year))
	return cached(ctx, p, key, func() ([]matching.FellowProfile, error) {
		return p.source.FellowsByCohort(ctx, year)
	})
}

func (p *CachedProfiles) Mentors(ctx context.Context, ids []string) ([]matching.MentorProfile, error) {
	key := SnapshotKey("mentors", ids...)
	return cached(ctx, p, key, func() ([]matching.MentorProfile, error) {
		return p.source.Mentors(ctx, ids)
	})
}

func (p *CachedProfiles) Activities(ctx context.Context, mentorIDs []string) ([]matching.MentorActivity, error) {
	key := SnapshotKey("activities", mentorIDs...)
	return cached(ctx, p, key, func() ([]matching.MentorActivity, error) {
		return p.source.Activities(ctx, mentorIDs)
	})
}

func cached[T any](ctx context.Context, p *CachedProfiles, key string, load func() (T, error)) (T, error) {
	var v T
	found, err := p.cache.Get(ctx, key, &v)
	if err != nil {
		p.log.Warn("Snapshot cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	if found && err == nil {
		return v, nil
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := p.cache.Set(ctx, key, v); err != nil {
		p.log.Warn("Snapshot cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
	return v, nil
}
