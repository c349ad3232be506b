package flow

import (
	"OrderFlow/entity"
	"OrderFlow/internal/lib/sl"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultFreeOrderDelay = 2200 * time.Millisecond

	timerAutoAdvance = "free_auto_advance"
	timerAutoSubmit  = "free_auto_submit"
	timerSearch      = "search"
)

// Options configure the collaborators of a Controller. Zero values fall back to
// runtime timers, no listener and no metrics.
type Options struct {
	FreeOrderDelay time.Duration
	Scheduler      Scheduler
	Listener       Listener
	Recorder       Recorder
}

type timerHandle struct {
	cancel func()
}

// Controller owns the questionnaire of one user. All mutation goes through its
// transitions; each one runs to completion, including the snapshot write, before the
// next is accepted.
type Controller struct {
	mu sync.Mutex

	userID    string
	phone     string
	state     FlowState
	answers   *AnswerStore
	fields    Fields
	order     *entity.OrderRef
	lastError string

	resumed    bool
	animate    bool
	submitting bool
	claiming   bool
	closed     bool
	timers     map[string]*timerHandle

	storage        SnapshotStorage
	orders         OrderPlacer
	scheduler      Scheduler
	listener       Listener
	recorder       Recorder
	freeOrderDelay time.Duration
	log            *slog.Logger
}

func NewController(userID string, storage SnapshotStorage, orders OrderPlacer, opts Options, log *slog.Logger) *Controller {
	c := &Controller{
		userID:         userID,
		state:          FlowState{Phase: PhaseAuthenticating},
		answers:        NewAnswerStore(),
		fields:         Fields{}.clone(),
		animate:        true,
		timers:         make(map[string]*timerHandle),
		storage:        storage,
		orders:         orders,
		scheduler:      opts.Scheduler,
		listener:       opts.Listener,
		recorder:       opts.Recorder,
		freeOrderDelay: opts.FreeOrderDelay,
		log:            log.With(sl.Module("flow.controller"), slog.String("user_id", userID)),
	}
	if c.scheduler == nil {
		c.scheduler = TimerScheduler{}
	}
	if c.listener == nil {
		c.listener = nopListener{}
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}
	if c.freeOrderDelay == 0 {
		c.freeOrderDelay = DefaultFreeOrderDelay
	}
	return c
}

// Authenticate seeds the phone answer and starts the questionnaire.
func (c *Controller) Authenticate(ctx context.Context, res entity.AuthResult) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseAuthenticating {
		return c.viewLocked(), ErrAlreadyAuthenticated
	}
	if err := Validate(entity.KindPhone, res.PhoneNumber); err != nil {
		return c.viewLocked(), fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	c.phone = res.PhoneNumber
	c.answers.Set(StepPhone, entity.Answer{Kind: entity.KindPhone, Value: res.PhoneNumber})
	c.settle()

	c.log.Info("flow authenticated", slog.Bool("new_user", res.IsNewUser))
	return c.commit(ctx, "authenticated"), nil
}

// restore seeds the controller from a persisted snapshot. It must run before the first
// view is handed out.
func (c *Controller) restore(s *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phone = s.Phone
	c.state = s.State
	if s.State.EditingStep != nil {
		step := *s.State.EditingStep
		c.state.EditingStep = &step
	}
	if s.State.OriginalAnswer != nil {
		a := *s.State.OriginalAnswer
		c.state.OriginalAnswer = &a
	}
	c.answers = answerStoreFrom(s.Answers)
	c.fields = s.Fields.clone()
	if s.Order != nil {
		o := *s.Order
		c.order = &o
	}
	c.lastError = s.LastError
	c.resumed = true
	// the prompt is shown as is after a reload
	c.animate = false
	c.armTimers()

	c.log.Info("flow restored",
		slog.String("phase", string(c.state.Phase)),
		slog.Int("step", c.state.CurrentStep),
	)
}

// SubmitAnswer validates and records the answer of the current step.
func (c *Controller) SubmitAnswer(ctx context.Context, step int, in Input) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Phase {
	case PhaseAnswering:
	case PhaseEditing:
		return c.viewLocked(), ErrEditInProgress
	case PhaseSubmitting:
		if c.submitting {
			return c.viewLocked(), ErrDuplicateSubmission
		}
		return c.viewLocked(), ErrNotAnswering
	default:
		return c.viewLocked(), ErrNotAnswering
	}

	if step != c.state.CurrentStep {
		if existing, ok := c.answers.Get(step); ok {
			if a, ok := answerFor(step, in); ok && a == existing {
				return c.viewLocked(), ErrDuplicateSubmission
			}
		}
		return c.viewLocked(), ErrOutOfOrderSubmit
	}
	if step >= StepPayment {
		return c.viewLocked(), ErrNotAnswering
	}
	if c.state.FreeOrder && step == StepFoodType {
		in = Input{Options: []string{FoodDrink}}
	}

	if err := c.accept(step, in); err != nil {
		return c.viewLocked(), err
	}
	c.settle()

	return c.commit(ctx, "answer"), nil
}

// Draft stores raw input of the active step without validating it.
func (c *Controller) Draft(ctx context.Context, step int, in Input) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state.Phase == PhaseAnswering && step == c.state.CurrentStep && step < StepPayment:
	case c.state.Phase == PhaseEditing && step == *c.state.EditingStep:
	default:
		return c.viewLocked(), ErrOutOfOrderSubmit
	}
	if c.state.FreeOrder && step == StepFoodType {
		return c.viewLocked(), ErrStepLocked
	}

	c.fields.apply(step, in)
	return c.commit(ctx, "draft"), nil
}

// RequestEdit reopens an answered step. Every answer after it is dropped.
func (c *Controller) RequestEdit(ctx context.Context, step int) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state.Phase {
	case PhaseAnswering:
	case PhaseSubmitting:
		if c.submitting {
			return c.viewLocked(), ErrNotAnswering
		}
	case PhaseEditing:
		return c.viewLocked(), ErrEditInProgress
	default:
		return c.viewLocked(), ErrNotAnswering
	}

	if step < StepAddress || step >= StepPayment {
		return c.viewLocked(), ErrEditOfUnansweredStep
	}
	original, ok := c.answers.Get(step)
	if !ok {
		return c.viewLocked(), ErrEditOfUnansweredStep
	}
	if c.state.FreeOrder && (step == StepFoodType || step == StepBudget) {
		return c.viewLocked(), ErrStepLocked
	}

	c.answers.DeleteFrom(step + 1)
	for s := step + 1; s < StepPayment; s++ {
		c.fields.clear(s)
	}
	if c.state.FreeOrder {
		c.fields.FoodType = []string{FoodDrink}
	}
	c.fields.restore(step, original)
	if step == StepAddress {
		c.fields.AddressConfirmed = false
	}

	editing := step
	c.state.EditingStep = &editing
	c.state.OriginalAnswer = &original
	c.state.CurrentStep = step
	c.state.Phase = PhaseEditing
	c.lastError = ""

	c.log.Debug("edit requested", slog.Int("step", step))
	return c.commit(ctx, "edit"), nil
}

// ConfirmEdit saves the edited value and moves on to the next unanswered step.
func (c *Controller) ConfirmEdit(ctx context.Context, in Input) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseEditing || c.state.EditingStep == nil {
		return c.viewLocked(), ErrNotEditing
	}
	step := *c.state.EditingStep

	if err := c.accept(step, in); err != nil {
		return c.viewLocked(), err
	}
	c.state.EditingStep = nil
	c.state.OriginalAnswer = nil
	c.settle()

	return c.commit(ctx, "edit_confirmed"), nil
}

// CancelEdit puts back the answer the edit started from. Answers dropped by the edit
// stay dropped.
func (c *Controller) CancelEdit(ctx context.Context) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseEditing || c.state.EditingStep == nil {
		return c.viewLocked(), ErrNotEditing
	}
	step := *c.state.EditingStep
	if original := c.state.OriginalAnswer; original != nil {
		c.answers.Set(step, *original)
		c.fields.restore(step, *original)
		if step == StepAddress {
			c.fields.AddressConfirmed = true
		}
	}
	c.state.EditingStep = nil
	c.state.OriginalAnswer = nil
	c.settle()

	return c.commit(ctx, "edit_cancelled"), nil
}

// EnableFreeOrder switches the flow to the free drink path and starts it over.
func (c *Controller) EnableFreeOrder(ctx context.Context) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.canEnableFreeOrder(); err != nil {
		return c.viewLocked(), err
	}
	return c.enableFreeOrderLocked(ctx), nil
}

// ClaimFreeOrder redeems the free drink through claim and then switches to the free
// drink path. The flow stays busy while claim runs, so no submission can take the
// reward's place in between.
func (c *Controller) ClaimFreeOrder(ctx context.Context, claim func(context.Context) error) (View, error) {
	c.mu.Lock()
	if c.claiming || c.state.FreeOrder {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrDuplicateSubmission
	}
	if err := c.canEnableFreeOrder(); err != nil {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, err
	}
	c.claiming = true
	c.submitting = true
	c.mu.Unlock()

	err := claim(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.claiming = false
	c.submitting = false
	if err != nil {
		return c.viewLocked(), err
	}
	return c.enableFreeOrderLocked(ctx), nil
}

func (c *Controller) canEnableFreeOrder() error {
	switch c.state.Phase {
	case PhaseAnswering, PhaseEditing:
	case PhaseSubmitting:
		if c.submitting {
			return ErrNotAnswering
		}
	default:
		return ErrNotAnswering
	}
	return nil
}

func (c *Controller) enableFreeOrderLocked(ctx context.Context) View {
	c.answers.DeleteFrom(StepAddress)
	c.fields = Fields{}.clone()
	c.fields.FoodType = []string{FoodDrink}
	c.state = FlowState{FreeOrder: true}
	c.order = nil
	c.lastError = ""
	c.settle()

	c.log.Info("free order enabled")
	return c.commit(ctx, "free_order")
}

// Submit creates and submits the order. Remote calls run without holding the lock;
// the submitting phase keeps every other transition out meanwhile.
func (c *Controller) Submit(ctx context.Context) (View, error) {
	c.mu.Lock()
	if c.submitting {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrDuplicateSubmission
	}
	ready := c.state.Phase == PhaseSubmitting ||
		(c.state.Phase == PhaseAnswering && readyToSubmit(NextStep(c.answers.Map(), c.state.FreeOrder)))
	if !ready || c.orders == nil {
		v := c.viewLocked()
		c.mu.Unlock()
		return v, ErrNotReady
	}

	req := c.orderRequest()
	var previous *entity.OrderRef
	if c.order != nil {
		o := *c.order
		previous = &o
	}
	c.submitting = true
	c.state.Phase = PhaseSubmitting
	c.lastError = ""
	c.cancelTimer(timerAutoSubmit)
	c.listener.Notify(c.viewLocked())
	c.mu.Unlock()

	ref, err := c.orders.Place(ctx, req, previous)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	if ref.OrderID != "" {
		c.order = &ref
	}

	if err != nil {
		c.state.Phase = PhaseAnswering
		c.lastError = userMessage(err)
		c.recorder.Order("failed")
		c.log.Warn("order submission failed", sl.Err(err), slog.String("order_id", ref.OrderID))
		return c.commit(ctx, "submit_failed"), err
	}

	if !c.state.FreeOrder {
		c.answers.Set(StepPayment, entity.Answer{Kind: entity.KindPayment, Value: paymentConfirmValue})
	}
	c.state.Phase = PhaseSearching
	c.state.CurrentStep = StepDone
	c.recorder.Order("submitted")
	c.log.Info("order submitted",
		slog.String("order_id", ref.OrderID),
		slog.String("order_number", ref.OrderNumber),
	)
	return c.commit(ctx, "submitted"), nil
}

// View returns the current read-only projection.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// State returns a copy of the flow position.
func (c *Controller) State() FlowState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.EditingStep != nil {
		step := *s.EditingStep
		s.EditingStep = &step
	}
	if s.OriginalAnswer != nil {
		a := *s.OriginalAnswer
		s.OriginalAnswer = &a
	}
	return s
}

// Answers returns a copy of the recorded answers.
func (c *Controller) Answers() map[int]entity.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.answers.Map()
}

// Close stops pending timers; later transitions are no longer persisted.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for name := range c.timers {
		c.cancelTimer(name)
	}
}

// accept validates an input for a step and records it.
func (c *Controller) accept(step int, in Input) error {
	a, ok := answerFor(step, in)
	if !ok {
		return ErrUnknownStep
	}
	if err := Validate(a.Kind, a.Value); err != nil {
		c.recorder.ValidationFailed(a.Kind)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	c.fields.apply(step, in)
	if step == StepAddress {
		c.fields.AddressConfirmed = true
	}
	c.answers.Set(step, a)
	c.lastError = ""
	return nil
}

// settle moves the pointer to the next step given by the branching rule. In free order
// mode the budget is written as zero without validation.
func (c *Controller) settle() {
	for {
		next := NextStep(c.answers.Map(), c.state.FreeOrder)
		if c.state.FreeOrder && next == StepBudget {
			c.answers.Set(StepBudget, entity.Answer{Kind: entity.KindBudget, Value: "0"})
			c.fields.Budget = "0"
			continue
		}
		c.state.CurrentStep = next
		break
	}
	if readyToSubmit(c.state.CurrentStep) {
		c.state.Phase = PhaseSubmitting
	} else {
		c.state.Phase = PhaseAnswering
	}
}

// commit is the post-transition hook: persist, record, re-arm timers, notify.
func (c *Controller) commit(ctx context.Context, transition string) View {
	c.animate = true
	c.persist(ctx)
	c.recorder.Transition(transition)
	c.armTimers()
	v := c.viewLocked()
	c.listener.Notify(v)
	return v
}

func (c *Controller) persist(ctx context.Context) {
	if c.closed || c.state.Phase == PhaseAuthenticating || c.storage == nil {
		return
	}
	if err := c.storage.Save(ctx, c.snapshotLocked()); err != nil {
		c.log.Error("save snapshot", sl.Err(err))
	}
}

func (c *Controller) snapshotLocked() *Snapshot {
	s := cloneSnapshot(Snapshot{
		UserID:    c.userID,
		Phone:     c.phone,
		State:     c.state,
		Answers:   c.answers.Entries(),
		Fields:    c.fields,
		Order:     c.order,
		LastError: c.lastError,
	})
	return &s
}

// armTimers schedules the timed transitions the current state calls for and cancels
// the ones it no longer does.
func (c *Controller) armTimers() {
	if c.closed {
		return
	}
	free := c.state.FreeOrder

	if free && c.state.Phase == PhaseAnswering && c.state.CurrentStep == StepFoodType {
		c.scheduleOnce(timerAutoAdvance, c.freeOrderDelay, c.autoAdvance)
	} else {
		c.cancelTimer(timerAutoAdvance)
	}

	if free && c.state.Phase == PhaseSubmitting && !c.submitting && c.lastError == "" {
		c.scheduleOnce(timerAutoSubmit, 0, c.autoSubmit)
	} else {
		c.cancelTimer(timerAutoSubmit)
	}

	if c.state.Phase == PhaseSearching && c.orders != nil {
		c.scheduleOnce(timerSearch, c.orders.SearchDelay(), c.finishSearch)
	} else {
		c.cancelTimer(timerSearch)
	}
}

func (c *Controller) scheduleOnce(name string, delay time.Duration, fn func(h *timerHandle)) {
	if _, ok := c.timers[name]; ok {
		return
	}
	h := &timerHandle{}
	c.timers[name] = h
	h.cancel = c.scheduler.After(delay, func() { fn(h) })
}

func (c *Controller) cancelTimer(name string) {
	if h, ok := c.timers[name]; ok {
		if h.cancel != nil {
			h.cancel()
		}
		delete(c.timers, name)
	}
}

// fired claims a timer for its callback; stale handles are ignored.
func (c *Controller) fired(name string, h *timerHandle) bool {
	if c.timers[name] != h {
		return false
	}
	delete(c.timers, name)
	return !c.closed
}

func (c *Controller) autoAdvance(h *timerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fired(timerAutoAdvance, h) {
		return
	}
	if !c.state.FreeOrder || c.state.Phase != PhaseAnswering || c.state.CurrentStep != StepFoodType {
		return
	}
	if err := c.accept(StepFoodType, Input{Options: []string{FoodDrink}}); err != nil {
		c.log.Error("free order auto advance", sl.Err(err))
		return
	}
	c.settle()
	c.commit(context.Background(), "auto_advance")
}

func (c *Controller) autoSubmit(h *timerHandle) {
	c.mu.Lock()
	ok := c.fired(timerAutoSubmit, h)
	c.mu.Unlock()
	if !ok {
		return
	}
	if _, err := c.Submit(context.Background()); err != nil && !errors.Is(err, ErrDuplicateSubmission) {
		c.log.Warn("free order auto submit", sl.Err(err))
	}
}

func (c *Controller) finishSearch(h *timerHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fired(timerSearch, h) || c.state.Phase != PhaseSearching {
		return
	}
	c.state.Phase = PhaseCompleted
	c.animate = true
	c.recorder.Transition("completed")

	if c.resumed {
		c.persist(context.Background())
	} else if c.storage != nil {
		if err := c.storage.Delete(context.Background(), c.userID); err != nil {
			c.log.Error("clear snapshot", sl.Err(err))
		}
	}
	c.log.Info("flow completed")
	c.listener.Notify(c.viewLocked())
}

func (c *Controller) orderRequest() entity.OrderRequest {
	get := func(step int) string {
		a, _ := c.answers.Get(step)
		return a.Value
	}
	form := entity.OrderForm{
		Address:     get(StepAddress),
		FoodType:    splitList(get(StepFoodType)),
		Allergies:   selectionEntries(get(StepAllergy), OtherAllergy),
		Preferences: selectionEntries(get(StepPreference), OtherPreference),
		Budget:      get(StepBudget),
		IsFreeOrder: c.state.FreeOrder,
	}
	if c.state.FreeOrder {
		form.FreeOrderType = entity.FreeOrderTypeInvite
	}
	return entity.OrderRequest{
		UserID:      c.userID,
		PhoneNumber: c.phone,
		Form:        form,
	}
}

func (c *Controller) viewLocked() View {
	answers := c.answers.Map()
	active := c.state.CurrentStep
	editing := c.state.Phase == PhaseEditing && c.state.EditingStep != nil
	if editing {
		active = *c.state.EditingStep
	}

	v := View{
		UserID:          c.userID,
		Phase:           c.state.Phase,
		ActiveStepIndex: active,
		IsEditing:       editing,
		FreeOrder:       c.state.FreeOrder,
		Path:            Path(answers, c.state.FreeOrder),
		Fields:          c.fields.clone(),
		Error:           c.lastError,
	}

	switch c.state.Phase {
	case PhaseAuthenticating:
		v.PromptText = authPrompt
		v.Kind = entity.KindPhone
	case PhaseSearching:
		v.PromptText = searchingPrompt
	case PhaseCompleted:
		v.PromptText = completedPrompt
	default:
		promptStep := active
		if promptStep > StepPayment {
			promptStep = StepPayment
		}
		v.PromptText = Prompt(promptStep, drinkSelected(answers), c.state.FreeOrder)
		if def, ok := Definition(promptStep); ok {
			v.Kind = def.Kind
			v.Options = def.Options
		}
		v.CanProceed = c.canProceed(active)
	}
	v.Animate = c.animate && (active > StepBudget || active < 0 || !c.fields.hasInput(active))

	for _, e := range c.answers.Entries() {
		question := authPrompt
		if def, ok := Definition(e.Step); ok {
			question = def.Message
		}
		v.Answers = append(v.Answers, AnsweredStep{
			Step:     e.Step,
			Question: question,
			Answer:   e.Answer,
			Display:  DisplayAnswer(e.Answer),
		})
	}
	if c.order != nil && c.order.Submitted {
		v.OrderNumber = c.order.OrderNumber
	}
	return v
}

func (c *Controller) canProceed(active int) bool {
	if c.submitting {
		return false
	}
	if active >= StepPayment {
		return true
	}
	if c.state.FreeOrder && active == StepFoodType {
		return true
	}
	a, ok := answerFor(active, c.fields.Input(active))
	if !ok {
		return false
	}
	return Validate(a.Kind, a.Value) == nil
}

// userMessage picks the text shown to the user for a failed submission.
func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return "提交订单失败，请重试"
}
