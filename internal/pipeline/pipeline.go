// Package pipeline drives one packet at a time through rule matching,
// trigger firing, plugin observation, ack synthesis, and the matched
// rule's action chain.
//
// Grounded on original_source/src/proxy.rs's dispatch shape:
// process_message_with_direction finds the first enabled rule whose
// direction/type/conditions hold (or falls through to an implicit
// Forward when nothing matches), fires triggers and plugins before the
// action chain runs, and an auto_ack reply is built and sent before the
// action chain executes — never after. execute_actions_impl's recursive
// "take the front action, act, recurse on the rest" shape is kept
// directly: Forward is a no-op that just continues, the terminal write
// happens only once the chain is exhausted, Block stops silently,
// Modify reuses a single eagerly-computed replacement payload across
// every packet it touches (matching the Rust original computing
// modified_message once per match rather than once per packet), and
// Delay/Batch hand the remaining suffix to their own package and return
// without writing anything themselves.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/k4hvh/madbridge/internal/ack"
	"github.com/k4hvh/madbridge/internal/batch"
	"github.com/k4hvh/madbridge/internal/delay"
	"github.com/k4hvh/madbridge/internal/dialect"
	"github.com/k4hvh/madbridge/internal/frame"
	"github.com/k4hvh/madbridge/internal/message"
	"github.com/k4hvh/madbridge/internal/metrics"
	"github.com/k4hvh/madbridge/internal/modifier"
	"github.com/k4hvh/madbridge/internal/plugin"
	"github.com/k4hvh/madbridge/internal/rules"
	"github.com/k4hvh/madbridge/internal/trigger"
	"github.com/k4hvh/madbridge/internal/types"
)

// Source is anything the driver can read raw frames from: a transport
// adapter reading off a socket, or a test harness feeding canned bytes.
type Source interface {
	// Read blocks until one packet is available. dir tells the driver
	// which side the packet arrived from.
	Read() (packet []byte, dir types.Direction, err error)
}

// Sink is anything the driver can hand a packet to for delivery toward
// one side of the proxy.
type Sink interface {
	Write(dir types.Direction, packet []byte) error
}

// AuditSink receives one fact per pipeline decision. It is a narrow,
// locally-declared interface rather than a direct dependency on the
// decision-log package so that package can import types without
// importing this one back.
type AuditSink interface {
	Record(types.DecisionRecord)
}

// Driver owns every stateful collaborator a packet's journey touches.
type Driver struct {
	rules     *rules.Store
	triggers  *trigger.Engine
	batches   *batch.Manager
	delays    *delay.Scheduler
	modifiers *modifier.Host
	plugins   *plugin.Host
	metrics   *metrics.Metrics
	log       *slog.Logger
	sink      Sink
	audit     AuditSink
}

// New builds a Driver. sink delivers forwarded/acked/released packets;
// audit may be nil, in which case decisions simply aren't logged.
func New(store *rules.Store, modifiers *modifier.Host, plugins *plugin.Host, delays *delay.Scheduler, m *metrics.Metrics, sink Sink, audit AuditSink, log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	d := &Driver{
		rules:     store,
		modifiers: modifiers,
		plugins:   plugins,
		delays:    delays,
		metrics:   m,
		sink:      sink,
		audit:     audit,
		log:       log,
	}
	d.triggers = trigger.New(store, trigger.WithLogger(log), trigger.WithEventHook(d.recordTriggerEvent))
	d.batches = batch.New(d.handleBatchTimeout, log)
	return d
}

// Triggers exposes the reaper engine so the caller can Start/Stop it
// alongside the driver's own lifecycle.
func (d *Driver) Triggers() *trigger.Engine { return d.triggers }

// Batches exposes the batch manager for a control-plane inspection
// endpoint; the driver itself is the only thing that ever queues into it.
func (d *Driver) Batches() *batch.Manager { return d.batches }

// Rules exposes the compiled rule store for a control-plane inspection
// or command endpoint.
func (d *Driver) Rules() *rules.Store { return d.rules }

// Run reads from src until it returns an error, dispatching every
// packet in turn. The caller decides what a Read error means (EOF,
// connection closed, context cancellation) — Run simply stops and
// returns it.
func (d *Driver) Run(src Source) error {
	for {
		packet, dir, err := src.Read()
		if err != nil {
			return err
		}
		d.Dispatch(dir, packet)
	}
}

// Dispatch runs one packet through the full decision pipeline. Parse
// failures fail open: an unparseable packet is forwarded unchanged, per
// the "still routable" requirement — a malformed frame is a codec
// problem, not a reason to drop traffic.
func (d *Driver) Dispatch(dir types.Direction, packet []byte) {
	f, _, err := frame.Parse(packet, dialect.CRCExtraLookup)
	if err != nil {
		d.metrics.ParseFailed()
		d.log.Warn("failed to parse frame, forwarding unchanged", "direction", dir, "error", err)
		d.forward(dir, packet)
		return
	}

	msg := message.Decode(f, dir)

	cr, matched := d.rules.Lookup(dir, msg.Typed.TypeName(), msg)
	if !matched {
		d.forward(dir, packet)
		return
	}

	cfg := cr.Config
	d.metrics.RuleMatched(cfg.Name)
	d.log.Debug("rule matched", "rule", cfg.Name, "message_type", cfg.MessageType, "direction", dir)

	if cfg.Trigger != nil && cfg.Trigger.FiresOnMatch() {
		for _, err := range d.triggers.Fire(cfg.Trigger) {
			d.log.Warn("trigger fire failed", "rule", cfg.Name, "error", err)
		}
	}

	modCtx := modifier.Context{
		SystemID:    int64(f.SystemID),
		ComponentID: int64(f.ComponentID),
		Sequence:    int64(f.Sequence),
		MessageType: msg.Typed.TypeName(),
		Message:     msg.View(),
	}

	if len(cfg.PluginRefs) > 0 {
		d.plugins.InvokeAll(cfg.PluginRefs, modCtx)
	}

	if cfg.AutoAck && cfg.Ack != nil {
		d.emitAck(cfg, dir, msg)
	}

	modifiedPayload := d.computeModifiedPayload(cfg, modCtx)

	d.executeChain(cfg, dir, modifiedPayload, types.ActionChain(cfg.Actions).Clone(), [][]byte{packet})
}

// emitAck builds and sends the rule's configured ack, toward the side
// that sent the matched message — the same direction any forwarded
// reply to that sender would travel.
func (d *Driver) emitAck(cfg types.RuleConfig, dir types.Direction, msg message.Decoded) {
	result, err := ack.Synthesize(cfg.Ack, msg)
	if err != nil {
		d.log.Warn("ack synthesis failed", "rule", cfg.Name, "error", err)
		return
	}
	payload, err := dialect.Encode(result.MessageType, result.Message)
	if err != nil {
		d.log.Warn("ack encode failed", "rule", cfg.Name, "message_type", result.MessageType, "error", err)
		return
	}
	ackFrame := frame.Frame{
		Version:     msg.Frame.Version,
		Sequence:    0,
		SystemID:    result.SystemID,
		ComponentID: result.ComponentID,
		MessageID:   msg.Frame.MessageID,
		Payload:     payload,
	}
	if desc, ok := dialect.LookupByName(result.MessageType); ok {
		ackFrame.MessageID = desc.ID
	}
	buf, err := frame.Serialize(ackFrame, dialect.CRCExtraLookup)
	if err != nil {
		d.log.Warn("ack serialize failed", "rule", cfg.Name, "error", err)
		return
	}
	if err := d.sink.Write(dir.Opposite(), buf); err != nil {
		d.log.Warn("ack send failed", "rule", cfg.Name, "error", err)
		return
	}
	d.metrics.AckEmitted()
	d.recordDecision(types.DecisionRecord{
		Timestamp:   time.Now(),
		Kind:        types.DecisionAckEmission,
		Direction:   dir,
		MessageType: result.MessageType,
		RuleName:    cfg.Name,
	})
}

// computeModifiedPayload runs the rule's modifier exactly once against
// the matched message, returning the re-encoded payload to stamp onto
// every packet the chain's "modify" step later touches. A nil result
// means "modify" falls back to leaving packets unchanged, matching the
// Rust original's Action::Forward fallback on any modifier failure.
func (d *Driver) computeModifiedPayload(cfg types.RuleConfig, ctx modifier.Context) []byte {
	needsModify := false
	for _, a := range cfg.Actions {
		if a == types.ActionModify {
			needsModify = true
			break
		}
	}
	if !needsModify {
		return nil
	}
	if cfg.ModifierRef == "" {
		d.log.Warn("modify action specified but no modifier configured", "rule", cfg.Name)
		return nil
	}

	result := d.modifiers.Apply(cfg.ModifierRef, ctx)
	newMsg, err := dialect.FromView(ctx.MessageType, result.Message)
	if err != nil {
		d.metrics.ModifierFailed()
		d.log.Warn("modifier produced an unreconstructable message, forwarding unmodified", "rule", cfg.Name, "modifier", cfg.ModifierRef, "error", err)
		return nil
	}
	payload, err := dialect.Encode(ctx.MessageType, newMsg)
	if err != nil {
		d.metrics.ModifierFailed()
		d.log.Warn("modifier result failed to re-encode, forwarding unmodified", "rule", cfg.Name, "modifier", cfg.ModifierRef, "error", err)
		return nil
	}
	return payload
}

// executeChain consumes remaining one action at a time. The chain
// running out is the only path that actually writes packets — Forward
// is just "continue," matching execute_actions_impl's empty-actions
// base case in the Rust source this is ported from.
func (d *Driver) executeChain(cfg types.RuleConfig, dir types.Direction, modifiedPayload []byte, remaining types.ActionChain, packets [][]byte) {
	action, rest, ok := remaining.Pop()
	if !ok {
		d.forwardAll(dir, packets)
		return
	}

	switch action {
	case types.ActionForward:
		d.executeChain(cfg, dir, modifiedPayload, rest, packets)

	case types.ActionBlock:
		d.log.Debug("packet(s) blocked by rule", "rule", cfg.Name, "count", len(packets))

	case types.ActionModify:
		d.executeChain(cfg, dir, modifiedPayload, rest, d.applyModify(packets, modifiedPayload))

	case types.ActionDelay:
		d.scheduleDelay(cfg, dir, modifiedPayload, rest, packets)

	case types.ActionBatch:
		d.queueBatch(cfg, dir, modifiedPayload, rest, packets)

	default:
		d.log.Warn("unknown action, forwarding", "rule", cfg.Name, "action", action)
		d.executeChain(cfg, dir, modifiedPayload, rest, packets)
	}
}

// applyModify reparses each packet to recover its own header, then
// re-serializes it with modifiedPayload as the new message body. A
// packet that fails to parse or re-serialize is passed through
// unchanged rather than dropped.
func (d *Driver) applyModify(packets [][]byte, modifiedPayload []byte) [][]byte {
	if modifiedPayload == nil {
		return packets
	}
	out := make([][]byte, len(packets))
	for i, p := range packets {
		f, _, err := frame.Parse(p, dialect.CRCExtraLookup)
		if err != nil {
			out[i] = p
			continue
		}
		f.Payload = modifiedPayload
		buf, err := frame.Serialize(f, dialect.CRCExtraLookup)
		if err != nil {
			out[i] = p
			continue
		}
		out[i] = buf
	}
	return out
}

// scheduleDelay parks the packets together, as one job behind one timer,
// for cfg.DelaySeconds, then resumes the chain from rest. Like the Rust tokio::spawn(sleep)
// arm it is ported from, scheduling returns immediately; other traffic
// is never blocked behind a pending delay.
func (d *Driver) scheduleDelay(cfg types.RuleConfig, dir types.Direction, modifiedPayload []byte, rest types.ActionChain, packets [][]byte) {
	var secs float64
	if cfg.DelaySeconds != nil {
		secs = *cfg.DelaySeconds
	}
	wait := time.Duration(secs * float64(time.Second))

	job := delay.Job{Packets: packets, Remaining: rest, Direction: dir}
	d.delays.Schedule(wait, job, func(j delay.Job) {
		d.executeChain(cfg, j.Direction, modifiedPayload, j.Remaining, j.Packets)
	})
}

// queueBatch extracts a member id from the (first) packet and hands it
// to the batch manager. A quorum release resumes the chain inline,
// still carrying modifiedPayload in case a later "modify" step reads
// it; a timeout release is handled entirely by handleBatchTimeout and
// never resumes a chain at all.
func (d *Driver) queueBatch(cfg types.RuleConfig, dir types.Direction, modifiedPayload []byte, rest types.ActionChain, packets [][]byte) {
	if cfg.Batch == nil {
		d.log.Warn("batch action with no batch configuration, forwarding", "rule", cfg.Name)
		d.executeChain(cfg, dir, modifiedPayload, rest, packets)
		return
	}
	if len(packets) != 1 {
		d.log.Warn("batch action applied to multiple packets, only batching the first", "rule", cfg.Name, "count", len(packets))
	}
	packet := packets[0]

	memberID := int64(0)
	if f, _, err := frame.Parse(packet, dialect.CRCExtraLookup); err == nil {
		memberID = int64(f.SystemID)
		if cfg.Batch.SystemIDField != "" {
			msg := message.Decode(f, dir)
			if v, ok := msg.ResolveInt(cfg.Batch.SystemIDField); ok {
				memberID = v
			}
		}
	}

	rel, ready := d.batches.QueueOrRelease(cfg.Batch.Key, memberID, packet, *cfg.Batch, dir, rest)
	if !ready {
		return
	}
	d.metrics.BatchReleased("quorum")
	d.recordDecision(types.DecisionRecord{
		Timestamp: time.Now(),
		Kind:      types.DecisionBatchRelease,
		Direction: dir,
		RuleName:  cfg.Name,
		BatchID:   rel.BatchID,
		Detail:    fmt.Sprintf("key=%s reason=quorum packets=%d", rel.Key, len(rel.Packets)),
	})
	d.executeChain(cfg, dir, modifiedPayload, rel.RemainingActions, rel.Packets)
}

func (d *Driver) forward(dir types.Direction, packet []byte) {
	d.forwardAll(dir, [][]byte{packet})
}

func (d *Driver) forwardAll(dir types.Direction, packets [][]byte) {
	dest := dir.Opposite()
	for _, p := range packets {
		if err := d.sink.Write(dest, p); err != nil {
			d.log.Warn("forward failed", "direction", dest, "error", err)
		}
	}
}

func (d *Driver) handleBatchTimeout(rel batch.Release) {
	d.metrics.BatchReleased("timeout_forward")
	d.log.Debug("batch timed out, forwarding raw packets", "key", rel.Key, "count", len(rel.Packets))
	d.forwardAll(rel.Direction, rel.Packets)
	d.recordDecision(types.DecisionRecord{
		Timestamp: time.Now(),
		Kind:      types.DecisionBatchRelease,
		Direction: rel.Direction,
		BatchID:   rel.BatchID,
		Detail:    fmt.Sprintf("key=%s reason=timeout_forward packets=%d", rel.Key, len(rel.Packets)),
	})
}

func (d *Driver) recordTriggerEvent(evt trigger.Event) {
	switch {
	case evt.Activated:
		d.metrics.TriggerActivated()
	case evt.Expired:
		d.metrics.TriggerExpired()
	}
	d.recordDecision(types.DecisionRecord{
		Timestamp:    time.Now(),
		Kind:         types.DecisionTriggerFire,
		RuleName:     evt.RuleName,
		ActivationID: evt.ActivationID,
		Detail:       fmt.Sprintf("activated=%v", evt.Activated),
	})
}

func (d *Driver) recordDecision(rec types.DecisionRecord) {
	if d.audit != nil {
		d.audit.Record(rec)
	}
}
