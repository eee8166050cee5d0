package pipeline

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// branchSeparator separates the text contributions of additive branches.
const branchSeparator = "\n\n"

// unitState is the observable state of a unit at one point of a pipeline.
type unitState struct {
	payload  domain.Payload
	text     string
	media    []unit.Blob
	metadata map[string]any
	trail    []string
	failures []error
}

func snapshotOf(u *unit.Unit) unitState {
	return unitState{
		payload:  u.Payload(),
		text:     u.Text(),
		media:    u.Media(),
		metadata: u.Metadata(),
		trail:    u.Trail(),
		failures: u.Failures(),
	}
}

func states(v collection.Value) []unitState {
	units := v.Units()
	out := make([]unitState, len(units))
	for i, u := range units {
		out[i] = snapshotOf(u)
	}
	return out
}

// mergeBranches combines the outputs of additive branches that all started
// from base. Text and media contributions are concatenated in branch order,
// metadata is unioned with later branches winning, and the payload comes from
// the first branch.
func mergeBranches(base unitState, branches []unitState) unitState {
	out := unitState{
		payload:  base.payload,
		metadata: base.metadata,
		trail:    base.trail,
		failures: base.failures,
	}
	if len(branches) > 0 {
		out.payload = branches[0].payload
	}

	keepText, keepMedia := true, true
	for _, b := range branches {
		keepText = keepText && strings.HasPrefix(b.text, base.text)
		keepMedia = keepMedia && hasMediaPrefix(b.media, base.media)
	}
	if keepText {
		out.text = base.text
	}
	if keepMedia {
		out.media = slices.Clone(base.media)
	}

	for _, b := range branches {
		contrib := b.text
		if keepText {
			contrib = strings.TrimLeft(strings.TrimPrefix(b.text, base.text), "\n")
		}
		out.text = appendText(out.text, contrib)

		if keepMedia {
			out.media = append(out.media, b.media[len(base.media):]...)
		} else {
			out.media = append(out.media, b.media...)
		}

		if out.metadata == nil {
			out.metadata = make(map[string]any, len(b.metadata))
		}
		for k, v := range b.metadata {
			out.metadata[k] = v
		}
		out.trail = append(out.trail, tail(b.trail, len(base.trail))...)
		out.failures = append(out.failures, tail(b.failures, len(base.failures))...)
	}
	return out
}

func (s unitState) applyTo(u *unit.Unit) {
	u.SetPayload(s.payload)
	u.SetText(s.text)
	u.SetMedia(s.media)
	u.MergeMeta(s.metadata)
	for _, step := range tail(s.trail, len(u.Trail())) {
		u.Record(step)
	}
	for _, err := range tail(s.failures, len(u.Failures())) {
		u.Fail(err)
	}
}

func appendText(text, s string) string {
	switch {
	case s == "":
		return text
	case text == "":
		return s
	default:
		return text + branchSeparator + s
	}
}

func hasMediaPrefix(media, prefix []unit.Blob) bool {
	return len(media) >= len(prefix) && slices.Equal(media[:len(prefix)], prefix)
}

func tail[T any](s []T, from int) []T {
	if from >= len(s) {
		return nil
	}
	return s[from:]
}

// snapshots records the text and media slots of units before an extraction step.
type snapshots map[*unit.Unit]unitState

func capture(v collection.Value) snapshots {
	out := make(snapshots)
	for _, u := range v.Units() {
		out[u] = unitState{text: u.Text(), media: u.Media()}
	}
	return out
}

// rewind resets the slot named by cat to its pre-extraction state so that the
// next extraction overwrites it. The current slot is kept for units the next
// step leaves untouched.
type rewinds []rewound

type rewound struct {
	u        *unit.Unit
	category domain.Category
	prior    unitState
	trail    int
}

func rewind(v collection.Value, base snapshots, cat domain.Category) rewinds {
	var out rewinds
	for _, u := range v.Units() {
		snap, ok := base[u]
		if !ok {
			continue
		}
		out = append(out, rewound{
			u:        u,
			category: cat,
			prior:    unitState{text: u.Text(), media: u.Media()},
			trail:    len(u.Trail()),
		})
		switch cat {
		case domain.CategoryText:
			u.SetText(snap.text)
		case domain.CategoryMedia:
			u.SetMedia(snap.media)
		}
	}
	return out
}

// settle restores the previous slot of every unit no handler wrote to.
func (r rewinds) settle() {
	for _, w := range r {
		if len(w.u.Trail()) != w.trail {
			continue
		}
		switch w.category {
		case domain.CategoryText:
			w.u.SetText(w.prior.text)
		case domain.CategoryMedia:
			w.u.SetMedia(w.prior.media)
		}
	}
}
