package entity

// ModelList is the soft-failure result of a model listing. A Degraded list
// means the backend could not be asked, not that the provider has no models;
// callers treat it as "model choice unconstrained".
type ModelList struct {
	Models []string `json:"models"`
	Reason string   `json:"degraded_reason,omitempty"`
}

// OkModels wraps a successful listing.
func OkModels(models []string) ModelList {
	return ModelList{Models: models}
}

// DegradedModels records why the listing failed while keeping the result soft.
func DegradedModels(reason string) ModelList {
	return ModelList{Reason: reason}
}

// Degraded reports whether the listing failed.
func (l ModelList) Degraded() bool {
	return l.Reason != ""
}

// Constrains reports whether the list should restrict model selection.
// Degraded or empty lists constrain nothing.
func (l ModelList) Constrains() bool {
	return !l.Degraded() && len(l.Models) > 0
}

// Contains reports whether model appears in the list.
func (l ModelList) Contains(model string) bool {
	for _, m := range l.Models {
		if m == model {
			return true
		}
	}
	return false
}
