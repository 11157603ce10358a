package binding

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/looper"
	"github.com/PizzaHomicide/reel/internal/player"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Passes triggered from inside callbacks are folded into the running arbitration.  This bounds how many extra
// passes one call may run.
const maxArbitrationRounds = 8

// Master is the tag keyed registry of playables and the arbiter of renderer ownership.  Every method must be
// called on the control goroutine that drains loop.
type Master struct {
	loop    *looper.Loop
	factory player.EngineFactory
	opts    options

	playables map[string]Playable
	playbacks []*Playback
	surfaces  map[string]*Playback

	seq         uint64
	arbitrating bool
	dirty       bool
	closed      bool
}

// New creates a Master.  Engine events are posted to loop, so the caller must keep draining it.
func New(loop *looper.Loop, factory player.EngineFactory, opts ...Option) *Master {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log.Info("Creating master", "max_active", o.maxActive, "max_playbacks_per_playable", o.maxPerPlayable,
		"tie_break", o.tieBreak.String(), "release_grace", o.grace)
	return &Master{
		loop:      loop,
		factory:   factory,
		opts:      o,
		playables: make(map[string]Playable),
		surfaces:  make(map[string]*Playback),
	}
}

// Handle is a pending reference to a set up playable.  It keeps the playable alive until it is bound or discarded.
type Handle struct {
	master   *Master
	playable Playable
	settled  bool
	err      error
}

// Playable returns the playable behind the handle, nil when set up failed
func (h *Handle) Playable() Playable {
	return h.playable
}

// Bind binds the playable to surface and settles the handle
func (h *Handle) Bind(surface Surface, opts ...BindOption) (*Playback, error) {
	if h.err != nil {
		return nil, h.err
	}
	pb, err := h.master.Bind(h.playable, surface, opts...)
	h.settle()
	return pb, err
}

// Discard drops the pending reference without binding
func (h *Handle) Discard() {
	h.settle()
}

func (h *Handle) settle() {
	if h.settled || h.playable == nil {
		return
	}
	h.settled = true
	b := h.playable.base()
	b.pending--
	h.master.maybeTearDown(b)
}

// SetUp returns a handle to the playable for cfg's tag, creating it with a fresh Bridge when none exists.  An
// existing playable keeps its media and engine; its config is replaced by cfg.
func (m *Master) SetUp(media domain.Media, cfg domain.Config) *Handle {
	if m.closed {
		return &Handle{master: m, err: illegalState("set up", "master is closed")}
	}
	tag := cfg.EffectiveTag(media)
	cfg = cfg.WithTag(tag)

	if p, ok := m.playables[tag]; ok {
		b := p.base()
		b.cancelGrace()
		b.pending++
		if !b.media.Equal(media) {
			log.Warn("Tag already set up for different media, keeping the original", "tag", tag,
				"existing", b.media.Key(), "requested", media.Key())
		}
		if b.config.RepeatMode != cfg.RepeatMode {
			if err := b.bridge.SetRepeat(cfg.RepeatMode); err != nil {
				log.Warn("Failed to apply repeat mode", "tag", tag, "error", err)
			}
		}
		b.config = cfg
		log.Debug("Reusing playable", "tag", tag)
		return &Handle{master: m, playable: p}
	}

	b := &Base{tag: tag, media: media, config: cfg, pending: 1}
	b.bridge = newBridge(m.loop, m.factory, media, cfg.RepeatMode, func(ev player.Event) {
		m.dispatchEvent(b, ev)
	})
	p := m.opts.factory(b)
	m.playables[tag] = p
	log.Info("Playable set up", "tag", tag, "media", media.Key())
	return &Handle{master: m, playable: p}
}

// Bind creates a playback of p on surface.  Binding the same playable to the same surface again returns the existing
// playback.  A surface still hosting another playable's playback is recycled: that playback is released first.
func (m *Master) Bind(p Playable, surface Surface, opts ...BindOption) (*Playback, error) {
	if m.closed {
		return nil, illegalState("bind", "master is closed")
	}
	if p == nil || surface == nil {
		return nil, illegalState("bind", "playable and surface are required")
	}
	b := p.base()
	if b.tornDown || m.playables[b.tag] != p {
		return nil, illegalState("bind", "playable %q is torn down", b.tag)
	}

	o := bindOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	sid := surface.SurfaceID()
	if existing, ok := m.surfaces[sid]; ok {
		if existing.playable == p {
			m.rebind(existing, surface, o)
			if existing.state == StateTornDown {
				return nil, illegalState("bind", "playback %s was released while rebinding", existing.id)
			}
			if o.eligible {
				return existing, existing.OnSurfaceEligible()
			}
			m.arbitrate()
			return existing, nil
		}
		log.Info("Surface recycled, releasing previous playback", "surface", sid, "previous", existing.Tag(),
			"next", b.tag)
		m.Release(existing)
		if b.tornDown {
			return nil, illegalState("bind", "playable %q is torn down", b.tag)
		}
	}

	if m.opts.maxPerPlayable > 0 && len(b.playbacks) >= m.opts.maxPerPlayable {
		return nil, illegalState("bind", "playable %q already has %d playbacks", b.tag, len(b.playbacks))
	}

	b.cancelGrace()
	cfg := b.config
	if o.config != nil {
		cfg = *o.config
	}
	cfg = cfg.WithTag(b.tag)

	pb := newPlayback(m, p, surface, cfg)
	register(pb, o)
	b.playbacks = append(b.playbacks, pb)
	m.playbacks = append(m.playbacks, pb)
	m.surfaces[sid] = pb
	log.Info("Playback bound", "playback", pb.id, "tag", b.tag, "surface", sid)

	if o.eligible {
		return pb, pb.OnSurfaceEligible()
	}
	m.arbitrate()
	return pb, nil
}

// rebind points an existing playback at a fresh surface object with the same id.  When the renderer changed, an
// active playback gives up the old one before the target moves and takes the new one on the next pass.
func (m *Master) rebind(pb *Playback, surface Surface, o bindOptions) {
	if pb.IsActive() && !sameRef(surface.Renderer(), pb.target.Renderer()) {
		log.Debug("Surface renderer replaced", "playback", pb.id, "tag", pb.Tag(), "surface", surface.SurfaceID())
		m.deactivate(pb, true)
		if pb.state == StateTornDown {
			return
		}
	}
	pb.target = surface
	if o.config != nil {
		pb.config = o.config.WithTag(pb.Tag())
		if pb.IsActive() {
			pb.playable.ConsiderRequestRenderer(pb)
		}
	}
	register(pb, o)
}

func register(pb *Playback, o bindOptions) {
	for _, cb := range o.callbacks {
		pb.AddCallback(cb)
	}
	for _, l := range o.eventListeners {
		pb.AddPlaybackEventListener(l)
	}
	for _, l := range o.playerListeners {
		pb.AddPlayerEventListener(l)
	}
}

// FindPlayable looks up a live playable without side effects
func (m *Master) FindPlayable(tag string) mo.Option[Playable] {
	p, ok := m.playables[tag]
	if !ok || p.base().tornDown {
		return mo.None[Playable]()
	}
	return mo.Some(p)
}

// Release tears pb down: an active playback loses the renderer first, then its listeners are cleared and it leaves
// the pool.  Releasing a torn down playback does nothing.
func (m *Master) Release(pb *Playback) {
	if pb == nil || pb.state == StateTornDown || pb.master != m {
		return
	}
	b := pb.playable.base()

	if pb.state == StateActive {
		m.deactivate(pb, m.hasOtherEligible(pb))
	}
	pb.setState(StateTornDown)
	pb.eligible = false
	pb.clearListeners()

	b.removePlayback(pb)
	m.playbacks = slices.DeleteFunc(m.playbacks, func(p *Playback) bool { return p == pb })
	if sid := pb.target.SurfaceID(); m.surfaces[sid] == pb {
		delete(m.surfaces, sid)
	}
	log.Info("Playback released", "playback", pb.id, "tag", b.tag, "surface", pb.target.SurfaceID())

	m.arbitrate()
	m.maybeTearDown(b)
}

// Retain keeps the playable for tag alive with no playbacks, for hosts that saved it and will bind it again.  It
// reports whether the tag exists.
func (m *Master) Retain(tag string) bool {
	p, ok := m.playables[tag]
	if !ok {
		return false
	}
	b := p.base()
	b.retained = true
	b.cancelGrace()
	return true
}

// Forget drops a Retain reference
func (m *Master) Forget(tag string) {
	p, ok := m.playables[tag]
	if !ok {
		return
	}
	b := p.base()
	b.retained = false
	m.maybeTearDown(b)
}

// Tags returns every registered tag, sorted
func (m *Master) Tags() []string {
	tags := lo.Keys(m.playables)
	slices.Sort(tags)
	return tags
}

// SearchTags returns the registered tags matching query, best match first
func (m *Master) SearchTags(query string) []string {
	tags := m.Tags()
	if query == "" {
		return tags
	}
	ranks := fuzzy.RankFindNormalizedFold(query, tags)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.Target, b.Target))
	})
	return lo.Map(ranks, func(r fuzzy.Rank, _ int) string { return r.Target })
}

// Playbacks returns every live playback, oldest first
func (m *Master) Playbacks() []*Playback {
	return slices.Clone(m.playbacks)
}

// ActivePlaybacks returns the playbacks currently holding a renderer
func (m *Master) ActivePlaybacks() []*Playback {
	return lo.Filter(m.playbacks, func(pb *Playback, _ int) bool { return pb.IsActive() })
}

// Close releases every playback and playable.  The Master cannot be used afterwards.
func (m *Master) Close() error {
	if m.closed {
		return nil
	}
	for _, pb := range slices.Clone(m.playbacks) {
		m.Release(pb)
	}
	m.closed = true

	var errs []error
	for _, p := range lo.Values(m.playables) {
		if err := m.teardownPlayable(p.base()); err != nil {
			errs = append(errs, err)
		}
	}
	log.Info("Master closed")
	return errors.Join(errs...)
}

func (m *Master) nextSeq() uint64 {
	m.seq++
	return m.seq
}

func (m *Master) dispatchEvent(b *Base, ev player.Event) {
	for _, pb := range b.Playbacks() {
		if pb.state != StateTornDown {
			pb.deliver(ev)
		}
	}
	if ev.Type == player.EventError && b.bridge.Failed() != nil && !b.tornDown {
		m.arbitrate()
	}
}

func (m *Master) hasOtherEligible(pb *Playback) bool {
	return lo.ContainsBy(pb.playable.base().playbacks, func(other *Playback) bool {
		return other != pb && other.eligible && other.state != StateTornDown
	})
}

func (m *Master) maybeTearDown(b *Base) {
	if b.tornDown || b.referenced() {
		return
	}
	if m.opts.grace <= 0 || m.closed {
		if err := m.teardownPlayable(b); err != nil {
			log.Error("Failed to tear down playable", "tag", b.tag, "error", err)
		}
		return
	}

	b.cancelGrace()
	gen := b.graceGen
	log.Debug("Playable unreferenced, scheduling teardown", "tag", b.tag, "grace", m.opts.grace)
	b.graceTimer = time.AfterFunc(m.opts.grace, func() {
		m.loop.Post(func() {
			if b.graceGen != gen || b.tornDown || b.referenced() {
				return
			}
			if err := m.teardownPlayable(b); err != nil {
				log.Error("Failed to tear down playable", "tag", b.tag, "error", err)
			}
		})
	})
}

func (m *Master) teardownPlayable(b *Base) error {
	if b.tornDown {
		return nil
	}
	b.cancelGrace()
	b.tornDown = true
	if p, ok := m.playables[b.tag]; ok && p.base() == b {
		delete(m.playables, b.tag)
	}
	log.Info("Playable torn down", "tag", b.tag)
	if err := b.bridge.Release(); err != nil {
		return fmt.Errorf("release bridge for %s: %w", b.tag, err)
	}
	return nil
}

// arbitrate runs arbitration passes until no callback asked for another one
func (m *Master) arbitrate() {
	if m.arbitrating {
		m.dirty = true
		return
	}
	m.arbitrating = true
	defer func() { m.arbitrating = false }()

	for round := 0; ; round++ {
		m.dirty = false
		m.pass()
		if !m.dirty {
			return
		}
		if round >= maxArbitrationRounds {
			log.Warn("Arbitration did not settle", "rounds", round+1)
			return
		}
	}
}

// outranks reports whether a should hold the renderer rather than b.  The incumbent keeps it, otherwise the tie
// break on eligibility order decides.
func (m *Master) outranks(a, b *Playback) bool {
	if a.IsActive() != b.IsActive() {
		return a.IsActive()
	}
	if m.opts.tieBreak == TieBreakOldest {
		return a.eligibleSeq < b.eligibleSeq
	}
	return a.eligibleSeq > b.eligibleSeq
}

// pass is one arbitration round.  Every losing holder is deactivated before any winner is activated, so a renderer
// moving between playbacks is always detached first.
func (m *Master) pass() {
	candidates := lo.Filter(m.playbacks, func(pb *Playback, _ int) bool {
		return pb.eligible && pb.state != StateTornDown && pb.playable.Bridge().Failed() == nil
	})
	groups := lo.GroupBy(candidates, func(pb *Playback) *Base { return pb.playable.base() })

	winners := make([]*Playback, 0, len(groups))
	for _, group := range groups {
		winners = append(winners, lo.MaxBy(group, m.outranks))
	}
	slices.SortStableFunc(winners, func(a, b *Playback) int {
		switch {
		case m.outranks(a, b):
			return -1
		case m.outranks(b, a):
			return 1
		}
		return 0
	})
	if m.opts.maxActive > 0 && len(winners) > m.opts.maxActive {
		for _, pb := range winners[m.opts.maxActive:] {
			log.Debug("Over active limit", "playback", pb.id, "tag", pb.Tag(), "max_active", m.opts.maxActive)
		}
		winners = winners[:m.opts.maxActive]
	}
	granted := lo.SliceToMap(winners, func(pb *Playback) (*Playback, bool) { return pb, true })
	grantedPlayable := lo.SliceToMap(winners, func(pb *Playback) (*Base, bool) { return pb.playable.base(), true })

	for _, pb := range slices.Clone(m.playbacks) {
		if pb.state == StateActive && !granted[pb] {
			m.deactivate(pb, grantedPlayable[pb.playable.base()])
		}
	}

	for _, pb := range slices.Clone(m.playbacks) {
		if granted[pb] && pb.eligible && pb.state != StateActive && pb.state != StateTornDown {
			m.activate(pb)
		}
	}

	// A playable that kept playing for a winner that then failed to attach would play with no renderer
	for _, pb := range winners {
		if pb.state == StateInactive && pb.config.AutoPlay == domain.AutoPlayOnActive {
			m.pauseIfUnrendered(pb)
		}
	}
}

// activate attaches pb's renderer and notifies.  Any failure leaves pb INACTIVE.
func (m *Master) activate(pb *Playback) {
	p := pb.playable
	renderer := pb.target.Renderer()

	if holder := m.holderOf(renderer); holder != nil && holder != pb {
		log.Error("Renderer is held by another playback", "playback", pb.id, "tag", pb.Tag(),
			"holder", holder.id, "holder_tag", holder.Tag())
		pb.setState(StateInactive)
		return
	}
	if err := p.Bridge().ensureEngine(); err != nil {
		log.Error("Failed to create engine", "playback", pb.id, "tag", pb.Tag(), "error", err)
		pb.setState(StateInactive)
		return
	}
	if err := p.ShouldAttachRenderer(renderer); err != nil {
		log.Error("Failed to attach renderer", "playback", pb.id, "tag", pb.Tag(),
			"surface", pb.target.SurfaceID(), "error", err)
		pb.setState(StateInactive)
		return
	}
	p.ConsiderRequestRenderer(pb)

	pb.activeSeq = m.nextSeq()
	pb.setState(StateActive)
	pb.notifyActive()

	if pb.state != StateActive || pb.config.AutoPlay == domain.AutoPlayOff {
		return
	}
	if err := p.Bridge().Play(); err != nil {
		log.Warn("Autoplay failed", "playback", pb.id, "tag", pb.Tag(), "error", err)
	}
}

// deactivate strips controls, detaches and notifies.  keepPlaying skips the OnActive pause when another playback of
// the same playable is about to take the renderer.
func (m *Master) deactivate(pb *Playback, keepPlaying bool) {
	p := pb.playable
	p.ConsiderReleaseRenderer(pb)
	if err := p.ShouldDetachRenderer(); err != nil {
		log.Error("Failed to detach renderer", "playback", pb.id, "tag", pb.Tag(), "error", err)
	}
	pb.setState(StateInactive)
	pb.notifyInActive()

	if pb.config.AutoPlay == domain.AutoPlayOnActive && !keepPlaying {
		if err := p.Bridge().Pause(); err != nil {
			log.Warn("Pause on deactivate failed", "playback", pb.id, "tag", pb.Tag(), "error", err)
		}
	}
}

func (m *Master) pauseIfUnrendered(pb *Playback) {
	b := pb.playable.base()
	if !b.bridge.Playing() || lo.ContainsBy(b.playbacks, (*Playback).IsActive) {
		return
	}
	if err := b.bridge.Pause(); err != nil {
		log.Warn("Pause after failed activation failed", "playback", pb.id, "tag", pb.Tag(), "error", err)
	}
}

// attached returns the renderer pb's playable actually holds.  Playables that attach outside their bridge report the
// target's renderer.
func attached(pb *Playback) any {
	if view := pb.playable.Bridge().Renderer(); view != nil {
		return view
	}
	return pb.target.Renderer()
}

func (m *Master) holderOf(renderer any) *Playback {
	if renderer == nil {
		return nil
	}
	for _, pb := range m.playbacks {
		if pb.state == StateActive && sameRef(attached(pb), renderer) {
			return pb
		}
	}
	return nil
}
