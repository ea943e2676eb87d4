package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ChannelKind distinguishes direct conversations from group channels
type ChannelKind string

const (
	ChannelDirect ChannelKind = "dm"
	ChannelGroup  ChannelKind = "group"
)

// Valid reports whether k is a known channel kind
func (k ChannelKind) Valid() bool {
	return k == ChannelDirect || k == ChannelGroup
}

// ChannelRef addresses one channel. For group channels ID is the group id.
type ChannelRef struct {
	Kind ChannelKind `json:"kind"`
	ID   uint64      `json:"id"`
}

// DirectChannel returns the ref of a direct conversation
func DirectChannel(conversationID uint64) ChannelRef {
	return ChannelRef{Kind: ChannelDirect, ID: conversationID}
}

// GroupChannel returns the ref of a group channel
func GroupChannel(groupID uint64) ChannelRef {
	return ChannelRef{Kind: ChannelGroup, ID: groupID}
}

// Key is the realtime topic of the channel, e.g. "dm:12"
func (r ChannelRef) Key() string {
	return string(r.Kind) + ":" + strconv.FormatUint(r.ID, 10)
}

func (r ChannelRef) String() string {
	return r.Key()
}

// ParseChannelKey is the inverse of ChannelRef.Key
func ParseChannelKey(key string) (ChannelRef, error) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok {
		return ChannelRef{}, fmt.Errorf("invalid channel key %q", key)
	}
	ref := ChannelRef{Kind: ChannelKind(kind)}
	if !ref.Kind.Valid() {
		return ChannelRef{}, fmt.Errorf("invalid channel kind %q", kind)
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return ChannelRef{}, fmt.Errorf("invalid channel id %q: %w", id, err)
	}
	ref.ID = n
	return ref, nil
}
