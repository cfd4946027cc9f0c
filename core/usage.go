package core

// Usage captures token usage statistics for one or more backend calls.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// Add returns the field-wise sum of u and o. A missing total is derived from
// input + output.
func (u Usage) Add(o Usage) Usage {
	sum := Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.total() + o.total(),
	}
	return sum
}

// Merge overlays the non-zero fields of o onto u. Streaming backends report
// input and output counts in separate events; merging keeps the latest value
// of each.
func (u Usage) Merge(o Usage) Usage {
	if o.InputTokens != 0 {
		u.InputTokens = o.InputTokens
	}
	if o.OutputTokens != 0 {
		u.OutputTokens = o.OutputTokens
	}
	if o.TotalTokens != 0 {
		u.TotalTokens = o.TotalTokens
	}
	return u
}

func (u Usage) total() int64 {
	if u.TotalTokens != 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}
