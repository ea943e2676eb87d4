package service

import (
	"context"
	"encoding/json"

	"github.com/courtside/courtside-chat/internal/domain"
	"github.com/courtside/courtside-chat/internal/repository"
	"github.com/courtside/courtside-chat/pkg/cache"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
)

// ProfileProvider resolves display profiles in one batch.
// Unknown users are absent from the result.
type ProfileProvider interface {
	GetProfiles(ctx context.Context, userIDs []string) (map[string]*domain.SenderProfile, error)
}

type profileProvider struct {
	repo  repository.ProfileRepository
	cache cache.Service
}

// NewProfileProvider creates a ProfileProvider backed by the profile table and the cache
func NewProfileProvider(repo repository.ProfileRepository, c cache.Service) ProfileProvider {
	if c == nil {
		c = cache.NewService(nil)
	}
	return &profileProvider{repo: repo, cache: c}
}

func (p *profileProvider) GetProfiles(ctx context.Context, userIDs []string) (map[string]*domain.SenderProfile, error) {
	ids := uniqueIDs(userIDs)
	out := make(map[string]*domain.SenderProfile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	log := pkglogger.GetLogger()

	hits, err := p.cache.GetProfiles(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("profile cache read failed")
	}
	var missing []string
	for _, id := range ids {
		raw, ok := hits[id]
		if ok {
			var sp domain.SenderProfile
			if json.Unmarshal(raw, &sp) == nil {
				out[id] = &sp
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	profiles, err := p.repo.FindByUserIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	fresh := make(map[string]interface{}, len(profiles))
	for _, pr := range profiles {
		sp := pr.ToSender()
		out[pr.UserID] = sp
		fresh[pr.UserID] = sp
	}
	if err := p.cache.SetProfiles(ctx, fresh); err != nil {
		log.Warn().Err(err).Msg("profile cache write failed")
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
