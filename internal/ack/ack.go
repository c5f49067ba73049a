// Package ack synthesizes an acknowledgement message before a rule's
// action chain executes: the matched message's source_system_field and
// source_component_field are read to identify the sender being
// impersonated, literal fields and copy_fields build the reply body,
// and the whole thing is handed back to the pipeline as a typed message
// ready to re-serialize and send toward the matched message's sender.
//
// Field names and semantics are grounded on
// original_source/src/config.rs's AutoAckConfig
// (message_type/source_system_field/source_component_field/fields/
// copy_fields); the read side reuses internal/view's path resolution,
// the same mechanism the condition matcher addresses fields with.
package ack

import (
	"fmt"

	"github.com/k4hvh/madbridge/internal/dialect"
	"github.com/k4hvh/madbridge/internal/message"
	"github.com/k4hvh/madbridge/internal/types"
	"github.com/k4hvh/madbridge/internal/view"
)

// Result is a synthesized ACK ready for the pipeline to frame and send.
type Result struct {
	Message     dialect.Message
	MessageType string
	SystemID    uint8
	ComponentID uint8
}

// Synthesize builds an ACK per spec from matched, the rule's matched
// message. It fails if either source field cannot be resolved, or if
// the configured message_type has no registered view constructor —
// both are config-validation concerns in practice, but Synthesize
// itself stays defensive since a rule's conditions can still match
// messages the ack config did not anticipate.
func Synthesize(spec *types.AckSpec, matched message.Decoded) (Result, error) {
	if spec == nil {
		return Result{}, fmt.Errorf("ack: nil spec")
	}

	sysVal, ok := matched.ResolveInt(spec.SourceSystemField)
	if !ok {
		return Result{}, fmt.Errorf("ack: source_system_field %q not resolvable on matched message", spec.SourceSystemField)
	}
	compVal, ok := matched.ResolveInt(spec.SourceComponentField)
	if !ok {
		return Result{}, fmt.Errorf("ack: source_component_field %q not resolvable on matched message", spec.SourceComponentField)
	}

	var built view.Value
	for targetPath, sourcePath := range spec.CopyFields {
		src, ok := matched.Resolve(sourcePath)
		if !ok {
			continue // source field absent on this message: skip, don't fail the whole ack.
		}
		built = view.Set(built, targetPath, src)
	}
	// Configured fields apply last so they can override a copied value on
	// a colliding path, matching build_ack()'s "fields can override copied
	// values" ordering.
	for path, raw := range spec.Fields {
		lit, err := literalValue(raw)
		if err != nil {
			return Result{}, fmt.Errorf("ack: field %q: %w", path, err)
		}
		built = view.Set(built, path, lit)
	}

	msg, err := dialect.FromView(spec.MessageType, built)
	if err != nil {
		return Result{}, fmt.Errorf("ack: %w", err)
	}

	return Result{
		Message:     msg,
		MessageType: spec.MessageType,
		SystemID:    uint8(sysVal),
		ComponentID: uint8(compVal),
	}, nil
}

func literalValue(raw any) (view.Value, error) {
	switch v := raw.(type) {
	case int:
		return view.Scalar(int64(v)), nil
	case int64:
		return view.Scalar(v), nil
	case float64:
		return view.Scalar(v), nil
	case bool:
		return view.Scalar(v), nil
	case string:
		return view.Scalar(v), nil
	case map[string]any:
		if t, ok := v["type"]; ok {
			name, ok := t.(string)
			if !ok {
				return view.Value{}, fmt.Errorf("enum \"type\" must be a string, got %T", t)
			}
			return view.Enum(name), nil
		}
		if bits, ok := v["bits"]; ok {
			n, err := toInt64(bits)
			if err != nil {
				return view.Value{}, fmt.Errorf("bitflag \"bits\": %w", err)
			}
			return view.Flags(n), nil
		}
		return view.Value{}, fmt.Errorf("record field must have a \"type\" or \"bits\" key")
	default:
		return view.Value{}, fmt.Errorf("unsupported ack field value type %T", raw)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}
