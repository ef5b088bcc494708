package generic

// Void is the "unit type", for when a value is required but carries no information.
type Void = struct{}

func NewVoid() Void {
	return Void{}
}
