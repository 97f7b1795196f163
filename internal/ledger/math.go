package ledger

// checkedAdd returns a+b, failing instead of wrapping on uint64 overflow.
func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// checkedMul returns a*b, failing instead of wrapping on uint64 overflow.
func checkedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/a != b {
		return 0, ErrArithmeticOverflow
	}
	return product, nil
}

// rewardFor computes the ECOC reward for a deposit: weight_grams * ecoc_per_kg
// / 1000 with floor division. Fractional ECOC is truncated, never rounded;
// this truncation is part of the compatibility contract.
func rewardFor(weightGrams, ecocPerKG uint64) (uint64, error) {
	product, err := checkedMul(weightGrams, ecocPerKG)
	if err != nil {
		return 0, err
	}
	return product / 1000, nil
}

// capacityGrams converts a container capacity from kilograms to grams using
// exact integer arithmetic. Capacity comparisons must never go through
// floating point.
func capacityGrams(capacityKG uint64) (uint64, error) {
	return checkedMul(capacityKG, 1000)
}
