package merging

// fillString fills the target when it is currently absent or empty and
// the incoming value is present. Reports whether it wrote.
func fillString(target **string, incoming *string) bool {
	if incoming == nil || *incoming == "" {
		return false
	}
	if *target != nil && **target != "" {
		return false
	}
	value := *incoming
	*target = &value
	return true
}

// fillFloat fills the target when it is currently absent and the
// incoming value is present. Reports whether it wrote.
func fillFloat(target **float64, incoming *float64) bool {
	if incoming == nil {
		return false
	}
	if *target != nil {
		return false
	}
	value := *incoming
	*target = &value
	return true
}
