package signal

import "encoding/json"

// EncodeActive serializes an ActiveSignal to the self-describing JSON
// document spec.md §6 mandates; field names there are part of the
// compatibility contract and must match the `json` tags on ActiveSignal.
func EncodeActive(a ActiveSignal) ([]byte, error) {
	return json.Marshal(a)
}

// DecodeActive is the inverse of EncodeActive.
func DecodeActive(data []byte) (ActiveSignal, error) {
	var a ActiveSignal
	if err := json.Unmarshal(data, &a); err != nil {
		return ActiveSignal{}, err
	}
	return a, nil
}

// EncodeScheduled serializes a ScheduledSignal.
func EncodeScheduled(s ScheduledSignal) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeScheduled is the inverse of EncodeScheduled.
func DecodeScheduled(data []byte) (ScheduledSignal, error) {
	var s ScheduledSignal
	if err := json.Unmarshal(data, &s); err != nil {
		return ScheduledSignal{}, err
	}
	return s, nil
}
