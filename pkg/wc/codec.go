package wc

import "gopkg.in/yaml.v2"

// The node store treats ConflictRow, WorkItemRow, and NotificationRow
// payloads as opaque bytes (see package store's doc comments); this
// package owns encoding and decoding them. YAML is used here for the
// same reason the CLI harness uses it for fixtures: it is already a
// dependency, and a conflict skeleton is small enough that a text
// encoding costs nothing while making store dumps readable during
// debugging.

func encodeConflictSkeleton(skeleton *ConflictSkeleton) ([]byte, error) {
	return yaml.Marshal(skeleton)
}

func decodeConflictSkeleton(payload []byte) (*ConflictSkeleton, error) {
	var skeleton ConflictSkeleton
	if err := yaml.Unmarshal(payload, &skeleton); err != nil {
		return nil, err
	}
	return &skeleton, nil
}

// DecodeConflict exposes the conflict skeleton decoder to callers outside
// this package (the CLI harness, and any other conflict-browsing tool)
// that need to interpret a store.ConflictRow's opaque payload.
func DecodeConflict(payload []byte) (*ConflictSkeleton, error) {
	return decodeConflictSkeleton(payload)
}

func encodeWorkItem(item *WorkItem) ([]byte, error) {
	return yaml.Marshal(item)
}

func decodeWorkItem(payload []byte) (*WorkItem, error) {
	var item WorkItem
	if err := yaml.Unmarshal(payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func encodeNotificationRecord(record *NotificationRecord) ([]byte, error) {
	return yaml.Marshal(record)
}

func decodeNotificationRecord(payload []byte) (*NotificationRecord, error) {
	var record NotificationRecord
	if err := yaml.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
