package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/repository/snapshot"
)

const (
	harvestDateLayout = "2006-01-02"
	maxIDAttempts     = 5
	// listenerBudget bounds all post-commit listeners of one change and stays
	// below the HTTP server's write timeout.
	listenerBudget = 10 * time.Second
)

// Service enforces the batch lifecycle: creation, event append and status
// transitions. Every read-modify-write of the snapshot runs under mu.
type Service struct {
	store          snapshot.Store
	baseURL        string
	logger         *zap.Logger
	listeners      []Listener
	listenerBudget time.Duration
	now            func() time.Time
	newID          func(time.Time) (string, error)
	mu             sync.Mutex
}

// NewService wires a ledger service over the provided store. baseURL is the
// public origin used to build trace links.
func NewService(store snapshot.Store, baseURL string, logger *zap.Logger, listeners ...Listener) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		baseURL:        strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		logger:         logger,
		listeners:      listeners,
		listenerBudget: listenerBudget,
		now:            time.Now,
		newID:          NewBatchID,
	}
}

// AddListener registers an observer for committed changes.
func (s *Service) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// CreateBatch validates the form, records the seed "Harvested" event and
// persists the new batch for farmerID.
func (s *Service) CreateBatch(ctx context.Context, farmerID string, form models.BatchForm) (models.Batch, error) {
	farmerID = strings.TrimSpace(farmerID)
	if farmerID == "" {
		return models.Batch{}, fmt.Errorf("%w: farmer id is required", ErrValidation)
	}

	produce, location, err := validateForm(form)
	if err != nil {
		return models.Batch{}, err
	}

	s.mu.Lock()

	batches, err := s.store.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return models.Batch{}, fmt.Errorf("load batches: %w", err)
	}

	now := s.now().UTC()
	batchID, err := s.uniqueID(now, batches)
	if err != nil {
		s.mu.Unlock()
		return models.Batch{}, err
	}

	seed := models.Event{
		Timestamp: now,
		Action:    string(models.StatusHarvested),
		Actor:     "Farmer",
		Details:   fmt.Sprintf("%dkg of %s harvested at %s", form.Quantity, produce, location),
		Status:    models.StatusHarvested,
	}

	batch := models.Batch{
		BatchID:     batchID,
		ProduceType: produce,
		Quantity:    form.Quantity,
		HarvestDate: strings.TrimSpace(form.HarvestDate),
		Location:    location,
		FarmerID:    farmerID,
		Status:      models.StatusHarvested,
		History:     []models.Event{seed},
		CreatedAt:   now,
	}
	if strings.TrimSpace(form.Certificate) != "" {
		batch.CertificateURL = fmt.Sprintf("cert_%s.pdf", batchID)
	}

	batches[batchID] = batch
	if err := s.store.SaveAll(ctx, batches); err != nil {
		s.mu.Unlock()
		return models.Batch{}, fmt.Errorf("save batches: %w", err)
	}
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Info("batch created",
		zap.String("batch_id", batchID),
		zap.String("farmer_id", farmerID),
		zap.String("produce", produce),
		zap.Int("quantity_kg", form.Quantity))

	s.notify(ctx, listeners, func(ctx context.Context, l Listener) error {
		return l.BatchCreated(ctx, batch.Clone())
	})

	return batch.Clone(), nil
}

// GetBatchByID returns the batch and true, or false when it does not exist.
func (s *Service) GetBatchByID(ctx context.Context, batchID string) (models.Batch, bool, error) {
	batches, err := s.store.LoadAll(ctx)
	if err != nil {
		return models.Batch{}, false, fmt.Errorf("load batches: %w", err)
	}

	batch, ok := batches[strings.TrimSpace(batchID)]
	if !ok {
		return models.Batch{}, false, nil
	}
	return batch, true, nil
}

// GetFarmerBatches lists the batches owned by farmerID, newest first.
func (s *Service) GetFarmerBatches(ctx context.Context, farmerID string) ([]models.Batch, error) {
	farmerID = strings.TrimSpace(farmerID)
	if farmerID == "" {
		return nil, fmt.Errorf("%w: farmer id is required", ErrValidation)
	}

	batches, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	out := make([]models.Batch, 0, len(batches))
	for _, batch := range batches {
		if batch.FarmerID == farmerID {
			out = append(out, batch)
		}
	}

	sortNewestFirst(out)
	return out, nil
}

// ListBatches returns every stored batch, newest first.
func (s *Service) ListBatches(ctx context.Context) ([]models.Batch, error) {
	batches, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	out := make([]models.Batch, 0, len(batches))
	for _, batch := range batches {
		out = append(out, batch)
	}

	sortNewestFirst(out)
	return out, nil
}

// IsEmpty reports whether the store holds no batches yet.
func (s *Service) IsEmpty(ctx context.Context) (bool, error) {
	batches, err := s.store.LoadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("load batches: %w", err)
	}
	return len(batches) == 0, nil
}

// AddEvent appends an event to the batch history. It returns false when the
// batch does not exist.
func (s *Service) AddEvent(ctx context.Context, batchID string, input models.EventInput) (bool, error) {
	_, ok, err := s.AppendEvent(ctx, batchID, input)
	return ok, err
}

// AppendEvent is AddEvent returning the updated batch.
//
// With a TargetStatus the event must move the batch exactly one stage
// forward. Without one the status is inferred from the action keywords: an
// action naming no stage, or the current stage, leaves the status unchanged,
// while one naming any stage other than the next is rejected.
func (s *Service) AppendEvent(ctx context.Context, batchID string, input models.EventInput) (models.Batch, bool, error) {
	return s.mutate(ctx, batchID, func(models.Batch) (models.EventInput, error) {
		return input, nil
	})
}

// Advance appends the default progression event for the batch's current
// stage. Empty actor and details fall back to the transition defaults.
func (s *Service) Advance(ctx context.Context, batchID, actor, details string) (models.Batch, bool, error) {
	return s.mutate(ctx, batchID, func(batch models.Batch) (models.EventInput, error) {
		transition, ok := models.TransitionFrom(batch.Status)
		if !ok {
			return models.EventInput{}, fmt.Errorf("%w: batch %s is %s", ErrTerminalStatus, batch.BatchID, batch.Status)
		}

		return models.EventInput{
			Actor:        actor,
			Details:      details,
			TargetStatus: transition.To,
		}, nil
	})
}

// TraceURL returns the public trace link for a batch.
func (s *Service) TraceURL(batchID string) string {
	return s.baseURL + "/trace/" + batchID
}

func (s *Service) mutate(ctx context.Context, batchID string, build func(models.Batch) (models.EventInput, error)) (models.Batch, bool, error) {
	batchID = strings.TrimSpace(batchID)

	s.mu.Lock()

	batches, err := s.store.LoadAll(ctx)
	if err != nil {
		s.mu.Unlock()
		return models.Batch{}, false, fmt.Errorf("load batches: %w", err)
	}

	batch, ok := batches[batchID]
	if !ok {
		s.mu.Unlock()
		return models.Batch{}, false, nil
	}

	input, err := build(batch)
	if err != nil {
		s.mu.Unlock()
		return models.Batch{}, true, err
	}

	input = withTransitionDefaults(batch.Status, input)
	next, err := resolveStatus(batch.Status, input)
	if err != nil {
		s.mu.Unlock()
		return models.Batch{}, true, err
	}

	event := models.Event{
		Timestamp: s.now().UTC(),
		Action:    strings.TrimSpace(input.Action),
		Actor:     strings.TrimSpace(input.Actor),
		Details:   strings.TrimSpace(input.Details),
		Status:    next,
	}

	previous := batch.Status
	history := make([]models.Event, len(batch.History), len(batch.History)+1)
	copy(history, batch.History)
	batch.History = append(history, event)
	batch.Status = next

	batches[batchID] = batch
	if err := s.store.SaveAll(ctx, batches); err != nil {
		s.mu.Unlock()
		return models.Batch{}, true, fmt.Errorf("save batches: %w", err)
	}
	listeners := s.listeners
	s.mu.Unlock()

	s.logger.Info("event appended",
		zap.String("batch_id", batchID),
		zap.String("action", event.Action),
		zap.String("actor", event.Actor),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))

	s.notify(ctx, listeners, func(ctx context.Context, l Listener) error {
		return l.EventAppended(ctx, batch.Clone(), event, previous)
	})

	return batch.Clone(), true, nil
}

func (s *Service) uniqueID(now time.Time, batches map[string]models.Batch) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID(now)
		if err != nil {
			return "", fmt.Errorf("generate batch id: %w", err)
		}
		if _, taken := batches[id]; !taken {
			return id, nil
		}
		s.logger.Warn("generated batch id already taken, retrying", zap.String("batch_id", id), zap.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDCollision, maxIDAttempts)
}

// notify runs listeners in order under one shared listenerBudget deadline.
// Listeners still waiting when it expires are skipped.
func (s *Service) notify(ctx context.Context, listeners []Listener, fn func(context.Context, Listener) error) {
	if len(listeners) == 0 {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.listenerBudget)
	defer cancel()

	for _, l := range listeners {
		if err := lctx.Err(); err != nil {
			s.logger.Warn("ledger listener skipped, budget exhausted", zap.Error(err))
			continue
		}
		if err := fn(lctx, l); err != nil {
			s.logger.Warn("ledger listener failed", zap.Error(err))
		}
	}
}

// withTransitionDefaults fills an explicit transition request's empty fields
// from the transition table.
func withTransitionDefaults(current models.Status, input models.EventInput) models.EventInput {
	if input.TargetStatus == "" {
		return input
	}
	transition, ok := models.TransitionFrom(current)
	if !ok || transition.To != input.TargetStatus {
		return input
	}
	if strings.TrimSpace(input.Action) == "" {
		input.Action = transition.Action
	}
	if strings.TrimSpace(input.Actor) == "" {
		input.Actor = transition.Actor
	}
	if strings.TrimSpace(input.Details) == "" {
		input.Details = transition.Description
	}
	return input
}

func resolveStatus(current models.Status, input models.EventInput) (models.Status, error) {
	next, hasNext := models.NextStatus(current)

	if input.TargetStatus != "" {
		if !input.TargetStatus.Valid() {
			return "", fmt.Errorf("%w: unknown target status %q", ErrValidation, input.TargetStatus)
		}
		if !hasNext {
			return "", fmt.Errorf("%w: batch is %s", ErrTerminalStatus, current)
		}
		if input.TargetStatus != next {
			return "", fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, input.TargetStatus)
		}
		if strings.TrimSpace(input.Action) == "" {
			return "", fmt.Errorf("%w: action is required", ErrValidation)
		}
		for _, named := range models.MatchStatuses(input.Action) {
			if named != next && named != current {
				return "", fmt.Errorf("%w: action %q names %s but target is %s", ErrValidation, input.Action, named, next)
			}
		}
		return next, nil
	}

	if strings.TrimSpace(input.Action) == "" {
		return "", fmt.Errorf("%w: action is required", ErrValidation)
	}

	inferred, ok := models.InferStatusFrom(current, input.Action)
	switch {
	case !ok, inferred == current:
		return current, nil
	case hasNext && inferred == next:
		return next, nil
	case !hasNext:
		return "", fmt.Errorf("%w: batch is %s", ErrTerminalStatus, current)
	default:
		return "", fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, inferred)
	}
}

func validateForm(form models.BatchForm) (produce, location string, err error) {
	produce, ok := models.CanonicalProduceType(form.ProduceType)
	switch {
	case strings.TrimSpace(form.ProduceType) == "":
		return "", "", fmt.Errorf("%w: produce type is required", ErrValidation)
	case !ok:
		return "", "", fmt.Errorf("%w: unknown produce type %q", ErrValidation, form.ProduceType)
	case form.Quantity <= 0:
		return "", "", fmt.Errorf("%w: quantity must be a positive number of kilograms", ErrValidation)
	case strings.TrimSpace(form.HarvestDate) == "":
		return "", "", fmt.Errorf("%w: harvest date is required", ErrValidation)
	}

	if _, err := time.Parse(harvestDateLayout, strings.TrimSpace(form.HarvestDate)); err != nil {
		return "", "", fmt.Errorf("%w: harvest date must be YYYY-MM-DD", ErrValidation)
	}

	location = strings.TrimSpace(form.Location)
	if location == "" {
		return "", "", fmt.Errorf("%w: location is required", ErrValidation)
	}

	return produce, location, nil
}

func sortNewestFirst(batches []models.Batch) {
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].CreatedAt.Equal(batches[j].CreatedAt) {
			return batches[i].CreatedAt.After(batches[j].CreatedAt)
		}
		return batches[i].BatchID < batches[j].BatchID
	})
}
