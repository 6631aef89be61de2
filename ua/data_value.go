// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import "time"

// DataValue holds the value, quality and timestamp
type DataValue struct {
	Value             Variant
	StatusCode        StatusCode
	SourceTimestamp   time.Time
	SourcePicoseconds uint16
	ServerTimestamp   time.Time
	ServerPicoseconds uint16
}

// NewDataValue returns a new DataValue.
func NewDataValue(value Variant, statusCode StatusCode, sourceTimestamp time.Time, sourcePicoseconds uint16, serverTimestamp time.Time, serverPicoseconds uint16) DataValue {
	return DataValue{value, statusCode, sourceTimestamp, sourcePicoseconds, serverTimestamp, serverPicoseconds}
}

// IsGood reports whether the value may be used.
func (v DataValue) IsGood() bool {
	return v.StatusCode.IsGood()
}
