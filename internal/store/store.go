// Package store holds one signed-in user's tasks, projects and categories in
// memory, together with statistics derived from them.
//
// Every mutation is sent to the Backend first. Only a successful response is
// reconciled into the in-memory collections, so a failed call leaves the
// store at its last known good state.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/model"
)

var (
	ErrNotSignedIn  = errors.New("not signed in")
	ErrInvalidInput = errors.New("invalid input")
)

// Snapshot is a consistent copy of the store state handed to views.
type Snapshot struct {
	Tasks      []model.Task     `json:"tasks"`
	Projects   []model.Project  `json:"projects"`
	Categories []model.Category `json:"categories"`
	Stats      Stats            `json:"stats"`
	Loading    bool             `json:"loading"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for stats and completion stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is the in-memory holder of a user's data. It is safe for concurrent
// use; backend calls run without holding the lock and their results are
// applied in arrival order.
type Store struct {
	backend  Backend
	identity Identity
	now      func() time.Time
	logger   *zap.Logger

	mu         sync.RWMutex
	tasks      []model.Task
	projects   []model.Project
	categories []model.Category
	stats      Stats
	loading    int
	closed     bool
	subs       map[int]func(Snapshot)
	nextSub    int
}

// New builds a Store bound to identity. A nil identity behaves as signed out.
func New(backend Backend, identity Identity, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		identity: identity,
		now:      time.Now,
		logger:   zap.NewNop(),
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) user() *model.User {
	if s.identity == nil {
		return nil
	}
	return s.identity.CurrentUser()
}

// LoadAll replaces every collection with a fresh fetch. Collections whose
// fetch fails keep their previous contents. It is a no-op when nobody is
// signed in.
func (s *Store) LoadAll(ctx context.Context) error {
	user := s.user()
	if user == nil {
		return nil
	}

	s.update(func() { s.loading++ })

	var (
		g          errgroup.Group
		tasks      []model.Task
		projects   []model.Project
		categories []model.Category
		taskErr    error
		projectErr error
		catErr     error
	)
	g.Go(func() error {
		tasks, taskErr = s.backend.ListTasks(ctx, user.ID)
		if taskErr != nil {
			return fmt.Errorf("load tasks: %w", taskErr)
		}
		return nil
	})
	g.Go(func() error {
		projects, projectErr = s.backend.ListProjects(ctx, user.ID)
		if projectErr != nil {
			return fmt.Errorf("load projects: %w", projectErr)
		}
		return nil
	})
	g.Go(func() error {
		categories, catErr = s.backend.ListCategories(ctx, user.ID)
		if catErr != nil {
			return fmt.Errorf("load categories: %w", catErr)
		}
		return nil
	})
	err := g.Wait()

	s.update(func() {
		s.loading--
		if taskErr == nil {
			s.tasks = tasks
		}
		if projectErr == nil {
			s.projects = projects
		}
		if catErr == nil {
			s.categories = categories
		}
	})
	if err != nil {
		s.logger.Warn("load failed", zap.String("user", user.ID), zap.Error(err))
	}
	return err
}

// RefreshTasks reloads only the task collection.
func (s *Store) RefreshTasks(ctx context.Context) error {
	return s.refresh("tasks", func(userID string) (func(), error) {
		tasks, err := s.backend.ListTasks(ctx, userID)
		return func() { s.tasks = tasks }, err
	})
}

// RefreshProjects reloads only the project collection.
func (s *Store) RefreshProjects(ctx context.Context) error {
	return s.refresh("projects", func(userID string) (func(), error) {
		projects, err := s.backend.ListProjects(ctx, userID)
		return func() { s.projects = projects }, err
	})
}

// RefreshCategories reloads only the category collection.
func (s *Store) RefreshCategories(ctx context.Context) error {
	return s.refresh("categories", func(userID string) (func(), error) {
		categories, err := s.backend.ListCategories(ctx, userID)
		return func() { s.categories = categories }, err
	})
}

// refresh runs fetch while counted as loading and applies its result only
// when it succeeds.
func (s *Store) refresh(what string, fetch func(userID string) (func(), error)) error {
	user := s.user()
	if user == nil {
		return nil
	}
	s.update(func() { s.loading++ })
	apply, err := fetch(user.ID)
	s.update(func() {
		s.loading--
		if err == nil {
			apply()
		}
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// CreateTask inserts a task created by the current user and prepends the
// stored row. The assignee defaults to the creator.
func (s *Store) CreateTask(ctx context.Context, input model.TaskInput) (*model.Task, error) {
	user := s.user()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	task, err := newTask(input, user.ID, s.now())
	if err != nil {
		return nil, err
	}

	created, err := s.backend.InsertTask(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.update(func() {
		s.tasks = Reconcile(s.tasks, Mutation[model.Task]{Op: OpPrepend, Row: *created})
		s.projects = syncProjectTasks(s.projects, nil, created)
	})
	out := *created
	return &out, nil
}

// UpdateTask sends a partial update and replaces the task in place. The
// completion stamp follows the status: see ApplyCompletion.
func (s *Store) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	user := s.user()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	if err := validateTaskPatch(patch); err != nil {
		return nil, err
	}

	s.mu.RLock()
	prev, _ := find(s.tasks, id)
	s.mu.RUnlock()
	patch = ApplyCompletion(prev, patch, s.now())

	updated, err := s.backend.UpdateTask(ctx, user.ID, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.update(func() {
		// A task removed while the update was in flight stays removed.
		before, ok := find(s.tasks, id)
		if !ok {
			return
		}
		s.tasks = Reconcile(s.tasks, Mutation[model.Task]{Op: OpReplace, ID: id, Row: *updated})
		s.projects = syncProjectTasks(s.projects, &before, updated)
	})
	out := *updated
	return &out, nil
}

// DeleteTask removes the task remotely and then locally.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	user := s.user()
	if user == nil {
		return ErrNotSignedIn
	}
	if err := s.backend.DeleteTask(ctx, user.ID, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.update(func() {
		if before, ok := find(s.tasks, id); ok {
			s.projects = syncProjectTasks(s.projects, &before, nil)
		}
		s.tasks = Reconcile(s.tasks, Mutation[model.Task]{Op: OpRemove, ID: id})
	})
	return nil
}

// CreateProject inserts a project owned by the current user and then an
// owner membership row. The two inserts are not atomic: when only the
// membership insert fails the project is still kept and returned.
func (s *Store) CreateProject(ctx context.Context, input model.ProjectInput) (*model.Project, error) {
	user := s.user()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	project, err := newProject(input, user.ID)
	if err != nil {
		return nil, err
	}

	created, err := s.backend.InsertProject(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	member := &model.ProjectMember{UserID: user.ID, ProjectID: created.ID, Role: model.RoleOwner}
	if err := s.backend.InsertMembership(ctx, member); err != nil {
		s.logger.Warn("project membership not recorded",
			zap.String("project", created.ID), zap.String("user", user.ID), zap.Error(err))
	}

	s.update(func() {
		s.projects = Reconcile(s.projects, Mutation[model.Project]{Op: OpPrepend, Row: *created})
	})
	out := *created
	return &out, nil
}

// UpdateProject sends a partial update and replaces the project in place.
func (s *Store) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	user := s.user()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	if err := validateProjectPatch(patch); err != nil {
		return nil, err
	}
	updated, err := s.backend.UpdateProject(ctx, user.ID, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.update(func() {
		s.projects = Reconcile(s.projects, Mutation[model.Project]{Op: OpReplace, ID: id, Row: *updated})
	})
	out := *updated
	return &out, nil
}

// CreateCategory inserts a category for the current user and appends it.
func (s *Store) CreateCategory(ctx context.Context, input model.CategoryInput) (*model.Category, error) {
	user := s.user()
	if user == nil {
		return nil, ErrNotSignedIn
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	category := &model.Category{
		UserID: user.ID,
		Title:  title,
		Color:  input.Color,
		Icon:   input.Icon,
	}
	created, err := s.backend.InsertCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.update(func() {
		s.categories = Reconcile(s.categories, Mutation[model.Category]{Op: OpAppend, Row: *created})
	})
	out := *created
	return &out, nil
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function cancels the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close drops all state and subscribers. Responses that arrive afterwards
// are discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tasks = nil
	s.projects = nil
	s.categories = nil
	s.stats = Stats{}
	s.subs = make(map[int]func(Snapshot))
}

func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.tasks)
}

func (s *Store) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.projects)
}

func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.categories)
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Task looks a task up by ID in the loaded collection.
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.tasks, id)
}

// Project looks a project up by ID in the loaded collection.
func (s *Store) Project(id string) (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.projects, id)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Tasks:      clone(s.tasks),
		Projects:   clone(s.projects),
		Categories: clone(s.categories),
		Stats:      s.stats,
		Loading:    s.loading > 0,
	}
}

// update applies fn under the lock, recomputes stats and notifies
// subscribers once the lock is released.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	fn()
	s.stats = ComputeStats(s.tasks, s.now())
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snap)
	}
}

func newTask(input model.TaskInput, userID string, now time.Time) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	status := input.Status
	if status == "" {
		status = model.StatusTodo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	priority := input.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, priority)
	}
	assignee := input.AssignedTo
	if assignee == "" {
		assignee = userID
	}

	task := &model.Task{
		Name:       name,
		Summary:    strings.TrimSpace(input.Summary),
		Status:     status,
		Priority:   priority,
		Deadline:   input.Deadline,
		CategoryID: input.CategoryID,
		ProjectID:  input.ProjectID,
		CreatedBy:  userID,
		AssignedTo: assignee,
	}
	if status == model.StatusDone {
		stamp := now
		task.CompletedAt = &stamp
	}
	return task, nil
}

func validateTaskPatch(patch model.TaskPatch) error {
	if patch.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if patch.Name.Set && strings.TrimSpace(patch.Name.Value) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, patch.Status.Value)
	}
	if patch.Priority.Set && !patch.Priority.Value.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, patch.Priority.Value)
	}
	if patch.AssignedTo.Set && patch.AssignedTo.Value == "" {
		return fmt.Errorf("%w: assignee cannot be empty", ErrInvalidInput)
	}
	return nil
}

func newProject(input model.ProjectInput, userID string) (*model.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	status := input.Status
	if status == "" {
		status = model.ProjectActive
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown project status %q", ErrInvalidInput, status)
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidInput)
	}
	color := input.Color
	if color == "" {
		color = model.DefaultProjectColor
	}
	return &model.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CategoryID:  input.CategoryID,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Color:       color,
		IsTeam:      input.IsTeam,
		Status:      status,
		OwnerID:     userID,
	}, nil
}

func validateProjectPatch(patch model.ProjectPatch) error {
	if len(patch.Columns()) == 0 {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if patch.Name.Set && strings.TrimSpace(patch.Name.Value) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
	}
	if patch.Status.Set && !patch.Status.Value.Valid() {
		return fmt.Errorf("%w: unknown project status %q", ErrInvalidInput, patch.Status.Value)
	}
	return nil
}
