// Package enrollment manages identities and their reference face samples.
//
// Registering a face always appends a new sample; earlier samples of the same
// identity are kept so that matching sees every enrolled variation (glasses,
// lighting, angle). Before a sample is stored it is compared against samples of
// other identities; close hits are reported as collisions but never block the
// registration.
package enrollment

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/logging"
)

// ErrInvalidName is returned when an identity name is blank.
var ErrInvalidName = errors.New("identity name is required")

// Options configures validation and the collision check.
type Options struct {
	Dim       int     // expected embedding length, 0 accepts any
	Model     string  // stored with every sample
	Threshold float64 // collision distance, usually the match threshold
}

// RegisterResult describes a stored sample.
type RegisterResult struct {
	Sample      *database.FaceSample
	SampleCount int                 // samples of the identity after the append
	Collisions  []database.Neighbor // other identities closer than Threshold
}

// Service manages identities and face samples.
type Service struct {
	identities database.IdentityWriter
	samples    database.FaceSampleWriter
	extractor  extractor.Extractor
	opts       Options

	index      *database.SampleIndex
	indexReady bool
	indexCount int        // store samples the index was built from plus local appends
	indexMu    sync.Mutex // held from the collision search through the append
}

// NewService creates an enrollment service. ext may be nil when only embeddings are registered.
func NewService(identities database.IdentityWriter, samples database.FaceSampleWriter, ext extractor.Extractor, opts Options) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = constants.DefaultMatchThreshold
	}
	return &Service{
		identities: identities,
		samples:    samples,
		extractor:  ext,
		opts:       opts,
		index:      database.NewSampleIndex(),
	}
}

// CreateIdentity stores a new identity.
func (s *Service) CreateIdentity(ctx context.Context, identity *database.Identity) error {
	identity.Name = strings.TrimSpace(identity.Name)
	if identity.Name == "" {
		return ErrInvalidName
	}
	if err := s.identities.CreateIdentity(ctx, identity); err != nil {
		return goerr.Wrap(err, "failed to create identity", goerr.V("name", identity.Name))
	}
	logging.From(ctx).Info("Identity created", "identity_id", identity.ID, "name", identity.Name)
	return nil
}

// GetIdentity returns an identity by ID.
func (s *Service) GetIdentity(ctx context.Context, id string) (*database.Identity, error) {
	identity, err := s.identities.GetIdentity(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get identity", goerr.V("identity_id", id))
	}
	return identity, nil
}

// ListIdentities returns all identities ordered by name.
func (s *Service) ListIdentities(ctx context.Context) ([]database.Identity, error) {
	list, err := s.identities.ListIdentities(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list identities")
	}
	return list, nil
}

// FindIdentityByName returns identities whose name matches ignoring case, diacritics and dashes.
func (s *Service) FindIdentityByName(ctx context.Context, name string) ([]database.Identity, error) {
	if facematch.NormalizePersonName(name) == "" {
		return nil, ErrInvalidName
	}
	list, err := s.identities.FindIdentitiesByName(ctx, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to find identity", goerr.V("name", name))
	}
	return list, nil
}

// UpdateProfile changes identity metadata. Samples and matching are unaffected.
func (s *Service) UpdateProfile(ctx context.Context, id string, update database.IdentityUpdate) (*database.Identity, error) {
	if update.Name != nil {
		trimmed := strings.TrimSpace(*update.Name)
		if trimmed == "" {
			return nil, ErrInvalidName
		}
		update.Name = &trimmed
	}
	if update.Empty() {
		return s.GetIdentity(ctx, id)
	}

	identity, err := s.identities.UpdateIdentity(ctx, id, update)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update identity", goerr.V("identity_id", id))
	}
	if update.Name != nil {
		// Reference names are denormalized in the index.
		s.invalidateIndex()
	}
	return identity, nil
}

// Samples returns the stored samples of an identity.
func (s *Service) Samples(ctx context.Context, identityID string) ([]database.FaceSample, error) {
	list, err := s.samples.ListSamples(ctx, identityID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list samples", goerr.V("identity_id", identityID))
	}
	return list, nil
}

// Register validates embedding and appends it as a new sample of the identity.
func (s *Service) Register(ctx context.Context, identityID string, embedding facematch.Embedding) (*RegisterResult, error) {
	return s.register(ctx, identityID, embedding, s.opts.Model)
}

// RegisterImage extracts the face embedding from image and registers it.
func (s *Service) RegisterImage(ctx context.Context, identityID string, image []byte) (*RegisterResult, error) {
	if s.extractor == nil {
		return nil, goerr.Wrap(extractor.ErrUnavailable, "no extractor configured")
	}
	// Fail on unknown identities before paying for extraction.
	if _, err := s.identities.GetIdentity(ctx, identityID); err != nil {
		return nil, goerr.Wrap(err, "failed to get identity", goerr.V("identity_id", identityID))
	}

	embedding, err := s.extractor.Extract(ctx, image)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract embedding", goerr.V("identity_id", identityID))
	}
	return s.register(ctx, identityID, embedding, s.opts.Model)
}

func (s *Service) register(ctx context.Context, identityID string, embedding facematch.Embedding, model string) (*RegisterResult, error) {
	if err := facematch.Validate(embedding, s.opts.Dim); err != nil {
		return nil, goerr.Wrap(err, "rejected embedding", goerr.V("identity_id", identityID))
	}

	identity, err := s.identities.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get identity", goerr.V("identity_id", identityID))
	}

	s.indexMu.Lock()
	collisions := s.collisionsLocked(ctx, identityID, embedding)
	sample, err := s.samples.Append(ctx, identityID, embedding, model)
	if err != nil {
		s.indexMu.Unlock()
		return nil, goerr.Wrap(err, "failed to store sample", goerr.V("identity_id", identityID))
	}
	if s.indexReady {
		s.index.Add(facematch.Reference{IdentityID: identityID, Name: identity.Name, Embedding: embedding})
		s.indexCount++
	}
	s.indexMu.Unlock()

	count := 0
	if list, err := s.samples.ListSamples(ctx, identityID); err == nil {
		count = len(list)
	}

	logger := logging.From(ctx)
	logger.Info("Face sample registered",
		"identity_id", identityID,
		"name", identity.Name,
		"sample_id", sample.ID,
		"samples", count,
	)
	for _, c := range collisions {
		logger.Warn("Registered face is close to another identity",
			"identity_id", identityID,
			"other_identity_id", c.IdentityID,
			"other_name", c.Name,
			"distance", c.Distance,
		)
	}

	return &RegisterResult{Sample: sample, SampleCount: count, Collisions: collisions}, nil
}

// DeleteSamples removes every sample of the identity so it can be re-enrolled.
func (s *Service) DeleteSamples(ctx context.Context, identityID string) (int64, error) {
	if _, err := s.identities.GetIdentity(ctx, identityID); err != nil {
		return 0, goerr.Wrap(err, "failed to get identity", goerr.V("identity_id", identityID))
	}
	n, err := s.samples.DeleteSamples(ctx, identityID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to delete samples", goerr.V("identity_id", identityID))
	}
	s.invalidateIndex()
	logging.From(ctx).Info("Face samples deleted", "identity_id", identityID, "count", n)
	return n, nil
}

// collisionsLocked returns samples of other identities closer than the threshold.
// The index is rebuilt when the store holds a different number of samples, which
// covers samples written by other processes. Index failures only disable the check.
func (s *Service) collisionsLocked(ctx context.Context, identityID string, embedding facematch.Embedding) []database.Neighbor {
	logger := logging.From(ctx)

	count, err := s.samples.CountSamples(ctx)
	switch {
	case err != nil && s.indexReady:
		logger.Warn("Cannot count samples, using cached collision index", "error", err)
	case err != nil || !s.indexReady || count != s.indexCount:
		refs, err := s.samples.FetchAll(ctx)
		if err != nil {
			s.indexReady = false
			logger.Warn("Skipping collision check, cannot load samples", "error", err)
			return nil
		}
		s.index.Build(refs)
		s.indexReady = true
		s.indexCount = len(refs)
	}
	return s.index.Near(embedding, identityID, s.opts.Threshold, constants.CollisionSearchLimit)
}

func (s *Service) invalidateIndex() {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()
	s.indexReady = false
}
