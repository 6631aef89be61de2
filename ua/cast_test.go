// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua_test

import (
	"errors"
	"testing"
	"time"

	"github.com/awcullen/uahelper/ua"
	"github.com/google/uuid"
	"gotest.tools/assert"
)

func TestCast(t *testing.T) {
	cases := []struct {
		text string
		typ  ua.BuiltInType
		want ua.Variant
	}{
		{"true", ua.BuiltInTypeBoolean, true},
		{"0", ua.BuiltInTypeBoolean, false},
		{"-8", ua.BuiltInTypeSByte, int8(-8)},
		{"255", ua.BuiltInTypeByte, uint8(255)},
		{"111", ua.BuiltInTypeInt16, int16(111)},
		{" 65535 ", ua.BuiltInTypeUInt16, uint16(65535)},
		{"-2147483648", ua.BuiltInTypeInt32, int32(-2147483648)},
		{"4294967295", ua.BuiltInTypeUInt32, uint32(4294967295)},
		{"-9223372036854775808", ua.BuiltInTypeInt64, int64(-9223372036854775808)},
		{"18446744073709551615", ua.BuiltInTypeUInt64, uint64(18446744073709551615)},
		{"1.5", ua.BuiltInTypeFloat, float32(1.5)},
		{"3.25", ua.BuiltInTypeDouble, float64(3.25)},
		{"hello", ua.BuiltInTypeString, "hello"},
		{"2021-03-04T05:06:07Z", ua.BuiltInTypeDateTime, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)},
		{"2021-03-04", ua.BuiltInTypeDateTime, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c", ua.BuiltInTypeGUID, uuid.MustParse("5ce9dbce-5d79-434c-9ac3-1cfba9a6e92c")},
		{"YWJjZA==", ua.BuiltInTypeByteString, ua.ByteString("abcd")},
		{"ns=2;s=Tag1", ua.BuiltInTypeNodeID, ua.NewNodeIDString(2, "Tag1")},
		{"0x80340000", ua.BuiltInTypeStatusCode, ua.BadNodeIDUnknown},
		{"2:Tag1", ua.BuiltInTypeQualifiedName, ua.QualifiedName{NamespaceIndex: 2, Name: "Tag1"}},
		{"hi", ua.BuiltInTypeLocalizedText, ua.LocalizedText{Text: "hi"}},
		{"any", ua.BuiltInTypeVariant, "any"},
	}
	for _, c := range cases {
		got, err := ua.Cast(c.text, c.typ)
		assert.NilError(t, err, c.text)
		assert.Equal(t, got, c.want, c.text)
	}
}

func TestCastFailure(t *testing.T) {
	cases := []struct {
		text string
		typ  ua.BuiltInType
	}{
		{"abc", ua.BuiltInTypeInt16},
		{"40000", ua.BuiltInTypeInt16},
		{"-1", ua.BuiltInTypeUInt32},
		{"maybe", ua.BuiltInTypeBoolean},
		{"1e40", ua.BuiltInTypeFloat},
		{"yesterday", ua.BuiltInTypeDateTime},
		{"not-a-guid", ua.BuiltInTypeGUID},
		{"%%", ua.BuiltInTypeByteString},
		{"Tag1", ua.BuiltInTypeNodeID},
		{"1", ua.BuiltInTypeNull},
		{"1", ua.BuiltInTypeExtensionObject},
	}
	for _, c := range cases {
		got, err := ua.Cast(c.text, c.typ)
		assert.Assert(t, got == nil, c.text)
		var ce *ua.CastError
		assert.Assert(t, errors.As(err, &ce), c.text)
		assert.Equal(t, ce.Text, c.text)
		assert.Equal(t, ce.Type, c.typ)
	}
}
