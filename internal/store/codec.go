package store

import (
	"encoding/json"
	"fmt"
)

func encodeRecord(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.Report.ID, err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func encodeItem(item WatchItem) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode watchlist item %s: %w", item.CanonicalName, err)
	}
	return data, nil
}

func decodeItem(data []byte) (WatchItem, error) {
	var item WatchItem
	if err := json.Unmarshal(data, &item); err != nil {
		return item, fmt.Errorf("decode watchlist item: %w", err)
	}
	return item, nil
}
