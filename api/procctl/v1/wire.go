package procctlv1

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"procctl/internal/control"
	"procctl/internal/notify"
	"procctl/internal/registry"
	"procctl/internal/source"
)

// Struct field names.
const (
	fieldTakenAt    = "taken_at"
	fieldProcesses  = "processes"
	fieldSkipped    = "skipped"
	fieldPID        = "pid"
	fieldName       = "name"
	fieldObservedAt = "observed_at"
	fieldLine       = "line"
	fieldText       = "text"
	fieldReason     = "reason"
	fieldTerminated = "terminated"
	fieldSpawned    = "spawned"
	fieldID         = "id"
	fieldKind       = "kind"
	fieldAt         = "at"
	fieldNewPID     = "new_pid"
	fieldCount      = "count"
	fieldOp         = "op"
	fieldError      = "error"
	fieldErrorKind  = "error_kind"
	fieldExitCode   = "exit_code"
	fieldCause      = "cause"
)

// EncodeSnapshot renders a snapshot, optionally narrowed to records, as a Struct.
func EncodeSnapshot(snap registry.Snapshot, records []registry.Record) (*structpb.Struct, error) {
	if records == nil {
		records = snap.Records
	}
	procs := make([]any, 0, len(records))
	for _, r := range records {
		procs = append(procs, map[string]any{
			fieldPID:        r.PID,
			fieldName:       r.Name,
			fieldObservedAt: formatTime(r.ObservedAt),
		})
	}
	return structpb.NewStruct(map[string]any{
		fieldTakenAt:   formatTime(snap.TakenAt),
		fieldProcesses: procs,
		fieldSkipped:   encodeSkipped(snap.Skipped),
	})
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(s *structpb.Struct) (registry.Snapshot, error) {
	f := s.GetFields()
	snap := registry.Snapshot{TakenAt: parseTime(f[fieldTakenAt].GetStringValue())}
	for _, v := range f[fieldProcesses].GetListValue().GetValues() {
		pf := v.GetStructValue().GetFields()
		if pf == nil {
			return registry.Snapshot{}, errors.New("malformed process entry")
		}
		snap.Records = append(snap.Records, registry.Record{
			PID:        int(pf[fieldPID].GetNumberValue()),
			Name:       pf[fieldName].GetStringValue(),
			ObservedAt: parseTime(pf[fieldObservedAt].GetStringValue()),
		})
	}
	snap.Skipped = decodeSkipped(f[fieldSkipped])
	return snap, nil
}

// EncodeTerminated renders a terminate result.
func EncodeTerminated(t control.Terminated) (*structpb.Struct, error) {
	return structpb.NewStruct(terminatedMap(t))
}

// DecodeTerminated is the inverse of EncodeTerminated.
func DecodeTerminated(s *structpb.Struct) control.Terminated {
	f := s.GetFields()
	return control.Terminated{PID: int(f[fieldPID].GetNumberValue()), Name: f[fieldName].GetStringValue()}
}

// EncodeSpawned renders a spawn result.
func EncodeSpawned(sp control.Spawned) (*structpb.Struct, error) {
	return structpb.NewStruct(spawnedMap(sp))
}

// DecodeSpawned is the inverse of EncodeSpawned.
func DecodeSpawned(s *structpb.Struct) control.Spawned {
	f := s.GetFields()
	return control.Spawned{Name: f[fieldName].GetStringValue(), PID: int(f[fieldPID].GetNumberValue())}
}

// EncodeRestarted renders a restart result.
func EncodeRestarted(r control.Restarted) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldTerminated: terminatedMap(r.Terminated),
		fieldSpawned:    spawnedMap(r.Spawned),
	})
}

// DecodeRestarted is the inverse of EncodeRestarted.
func DecodeRestarted(s *structpb.Struct) control.Restarted {
	f := s.GetFields()
	return control.Restarted{
		Terminated: DecodeTerminated(f[fieldTerminated].GetStructValue()),
		Spawned:    DecodeSpawned(f[fieldSpawned].GetStructValue()),
	}
}

// EncodeEvent renders a notifier event.
func EncodeEvent(ev notify.Event) (*structpb.Struct, error) {
	m := map[string]any{
		fieldID:      ev.ID.String(),
		fieldKind:    ev.Kind.String(),
		fieldAt:      formatTime(ev.At),
		fieldPID:     ev.PID,
		fieldName:    ev.Name,
		fieldNewPID:  ev.NewPID,
		fieldCount:   ev.Count,
		fieldOp:      ev.Op,
		fieldSkipped: encodeSkipped(ev.Skipped),
	}
	if ev.Err != nil {
		m[fieldError] = ev.Err.Error()
		var ce *control.Error
		if errors.As(ev.Err, &ce) {
			m[fieldErrorKind] = ce.Kind.String()
			m[fieldExitCode] = ce.ExitCode
			if ce.Err != nil {
				m[fieldCause] = ce.Err.Error()
			}
		}
	}
	return structpb.NewStruct(m)
}

// DecodeEvent is the inverse of EncodeEvent. Control errors come back as *control.Error.
func DecodeEvent(s *structpb.Struct) (notify.Event, error) {
	f := s.GetFields()
	kind, err := notify.ParseKind(f[fieldKind].GetStringValue())
	if err != nil {
		return notify.Event{}, err
	}
	id, _ := uuid.Parse(f[fieldID].GetStringValue())
	ev := notify.Event{
		ID:      id,
		Kind:    kind,
		At:      parseTime(f[fieldAt].GetStringValue()),
		PID:     int(f[fieldPID].GetNumberValue()),
		Name:    f[fieldName].GetStringValue(),
		NewPID:  int(f[fieldNewPID].GetNumberValue()),
		Count:   int(f[fieldCount].GetNumberValue()),
		Op:      f[fieldOp].GetStringValue(),
		Skipped: decodeSkipped(f[fieldSkipped]),
	}
	if msg := f[fieldError].GetStringValue(); msg != "" {
		ev.Err = errors.New(msg)
		if k, err := control.ParseKind(f[fieldErrorKind].GetStringValue()); err == nil {
			ev.Err = &control.Error{
				Kind:     k,
				Op:       ev.Op,
				PID:      ev.PID,
				Name:     ev.Name,
				ExitCode: int(f[fieldExitCode].GetNumberValue()),
				Err:      causeErr(f[fieldCause].GetStringValue()),
			}
		}
	}
	return ev, nil
}

// StatusFromError converts a core error into a gRPC status error. Control
// errors carry a Struct detail so clients can rebuild them.
func StatusFromError(err error) error {
	if err == nil {
		return nil
	}
	var ce *control.Error
	if !errors.As(err, &ce) {
		var exitErr *source.ExitError
		switch {
		case errors.Is(err, source.ErrCommandUnavailable):
			return status.Error(codes.FailedPrecondition, err.Error())
		case errors.As(err, &exitErr):
			return status.Error(codes.Internal, err.Error())
		default:
			return status.Error(codes.Unknown, err.Error())
		}
	}

	st := status.New(codeFor(ce.Kind), ce.Error())
	detail, derr := structpb.NewStruct(map[string]any{
		fieldErrorKind: ce.Kind.String(),
		fieldOp:        ce.Op,
		fieldPID:       ce.PID,
		fieldName:      ce.Name,
		fieldExitCode:  ce.ExitCode,
		fieldCause:     causeText(ce.Err),
	})
	if derr != nil {
		return st.Err()
	}
	if withDetail, derr := st.WithDetails(detail); derr == nil {
		st = withDetail
	}
	return st.Err()
}

// ErrorFromStatus rebuilds a *control.Error from a status produced by
// StatusFromError. A bare DeadlineExceeded or Canceled status, which the
// client's own deadline produces, becomes a KindTimeout error. Other errors
// are returned unchanged.
func ErrorFromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	for _, d := range st.Details() {
		s, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		f := s.GetFields()
		kind, kerr := control.ParseKind(f[fieldErrorKind].GetStringValue())
		if kerr != nil {
			continue
		}
		return &control.Error{
			Kind:     kind,
			Op:       f[fieldOp].GetStringValue(),
			PID:      int(f[fieldPID].GetNumberValue()),
			Name:     f[fieldName].GetStringValue(),
			ExitCode: int(f[fieldExitCode].GetNumberValue()),
			Err:      causeErr(f[fieldCause].GetStringValue()),
		}
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Canceled:
		return &control.Error{Kind: control.KindTimeout, ExitCode: -1, Err: err}
	}
	return err
}

func codeFor(k control.Kind) codes.Code {
	switch k {
	case control.KindNotFound:
		return codes.NotFound
	case control.KindTimeout:
		return codes.DeadlineExceeded
	case control.KindPartialRestart:
		return codes.DataLoss
	default:
		return codes.Aborted
	}
}

func terminatedMap(t control.Terminated) map[string]any {
	return map[string]any{fieldPID: t.PID, fieldName: t.Name}
}

func spawnedMap(sp control.Spawned) map[string]any {
	return map[string]any{fieldName: sp.Name, fieldPID: sp.PID}
}

func encodeSkipped(skipped []registry.SkippedLine) []any {
	out := make([]any, 0, len(skipped))
	for _, sk := range skipped {
		out = append(out, map[string]any{
			fieldLine:   sk.Line,
			fieldText:   sk.Text,
			fieldReason: sk.Reason,
		})
	}
	return out
}

func decodeSkipped(v *structpb.Value) []registry.SkippedLine {
	vals := v.GetListValue().GetValues()
	if len(vals) == 0 {
		return nil
	}
	out := make([]registry.SkippedLine, 0, len(vals))
	for _, item := range vals {
		f := item.GetStructValue().GetFields()
		out = append(out, registry.SkippedLine{
			Line:   int(f[fieldLine].GetNumberValue()),
			Text:   f[fieldText].GetStringValue(),
			Reason: f[fieldReason].GetStringValue(),
		})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func causeErr(msg string) error {
	if msg == "" {
		return nil
	}
	return fmt.Errorf("%s", msg)
}
