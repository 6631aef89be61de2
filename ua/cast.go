// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CastError reports text that cannot be converted to a built-in type.
type CastError struct {
	Text string
	Type BuiltInType
	Err  error
}

func (e *CastError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot cast %q to %s: %s", e.Text, e.Type, e.Err)
	}
	return fmt.Sprintf("cannot cast %q to %s", e.Text, e.Type)
}

func (e *CastError) Unwrap() error {
	return e.Err
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Cast converts text to a value of the given built-in type.
//   - Cast("111", BuiltInTypeInt16) // int16(111)
//   - Cast("true", BuiltInTypeBoolean) // true
//   - Cast("2021-03-04T05:06:07Z", BuiltInTypeDateTime) // time.Time
func Cast(text string, t BuiltInType) (Variant, error) {
	fail := func(err error) (Variant, error) {
		return nil, &CastError{Text: text, Type: t, Err: err}
	}
	s := strings.TrimSpace(text)
	switch t {
	case BuiltInTypeBoolean:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fail(err)
		}
		return v, nil
	case BuiltInTypeSByte:
		v, err := strconv.ParseInt(s, 10, 8)
		if err != nil {
			return fail(err)
		}
		return int8(v), nil
	case BuiltInTypeByte:
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return fail(err)
		}
		return uint8(v), nil
	case BuiltInTypeInt16:
		v, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return fail(err)
		}
		return int16(v), nil
	case BuiltInTypeUInt16:
		v, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return fail(err)
		}
		return uint16(v), nil
	case BuiltInTypeInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return fail(err)
		}
		return int32(v), nil
	case BuiltInTypeUInt32:
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return fail(err)
		}
		return uint32(v), nil
	case BuiltInTypeInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fail(err)
		}
		return v, nil
	case BuiltInTypeUInt64:
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fail(err)
		}
		return v, nil
	case BuiltInTypeFloat:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fail(err)
		}
		return float32(v), nil
	case BuiltInTypeDouble:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fail(err)
		}
		return v, nil
	case BuiltInTypeString:
		return text, nil
	case BuiltInTypeDateTime:
		for _, layout := range dateTimeLayouts {
			if v, err := time.Parse(layout, s); err == nil {
				return v.UTC(), nil
			}
		}
		return fail(fmt.Errorf("unrecognized date time format"))
	case BuiltInTypeGUID:
		v, err := uuid.Parse(s)
		if err != nil {
			return fail(err)
		}
		return v, nil
	case BuiltInTypeByteString:
		v, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fail(err)
		}
		return ByteString(v), nil
	case BuiltInTypeXMLElement:
		return XMLElement(text), nil
	case BuiltInTypeNodeID:
		v := ParseNodeID(s)
		if v.IsNil() {
			return fail(fmt.Errorf("malformed node id"))
		}
		return v, nil
	case BuiltInTypeStatusCode:
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return fail(err)
		}
		return StatusCode(v), nil
	case BuiltInTypeQualifiedName:
		if pos := strings.Index(s, ":"); pos > 0 {
			if ns, err := strconv.ParseUint(s[:pos], 10, 16); err == nil {
				return QualifiedName{NamespaceIndex: uint16(ns), Name: s[pos+1:]}, nil
			}
		}
		return QualifiedName{Name: s}, nil
	case BuiltInTypeLocalizedText:
		return LocalizedText{Text: text}, nil
	case BuiltInTypeVariant:
		return text, nil
	}
	return fail(fmt.Errorf("unsupported type"))
}
