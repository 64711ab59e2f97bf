package model

// ResourceID identifies a resource inside an Instance catalog.
type ResourceID string

// Resource is a schedulable slot: a location at a time period with a capacity.
type Resource struct {
	ID       ResourceID `csv:"resource_id" json:"id"`
	Period   int        `csv:"period" json:"period"`
	Location string     `csv:"location" json:"location"`
	Kind     string     `csv:"kind" json:"kind"`
	Capacity int        `csv:"capacity" json:"capacity"`
}

type cellKey struct {
	location string
	period   int
}
