package gateway

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"

	"github.com/kacamatagratis/kacamatagratis/pkg/models"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
)

// ErrNoActiveKeys means the credential pool has nothing to send with.
// Callers treat it as a configuration error, not a provider failure.
var ErrNoActiveKeys = errors.New("no active dripsender keys")

// Pool selects a provider credential for one send attempt. The exclude
// list lets the retry path demand a different key than the one that
// just failed.
type Pool interface {
	Pick(exclude []uuid.UUID) (*models.DripSenderKey, error)
}

// RandomPool picks uniformly at random among active keys, spreading
// load so no single key trips the provider's throttling.
type RandomPool struct {
	keys *repositories.DripSenderKeyRepository
}

func NewRandomPool(keys *repositories.DripSenderKeyRepository) *RandomPool {
	return &RandomPool{keys: keys}
}

func (p *RandomPool) Pick(exclude []uuid.UUID) (*models.DripSenderKey, error) {
	active, err := p.keys.ListActive()
	if err != nil {
		return nil, err
	}

	candidates := active[:0]
	for _, k := range active {
		excluded := false
		for _, id := range exclude {
			if k.ID == id {
				excluded = true
				break
			}
		}
		if !excluded {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoActiveKeys
	}
	k := candidates[rand.Intn(len(candidates))]
	return &k, nil
}
