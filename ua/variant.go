// Copyright 2021 Converter Systems LLC. All rights reserved.

package ua

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Variant stores a value of one of the built-in types, or a slice of them.
type Variant interface{}

// ByteString is stored as a string.
type ByteString string

// String returns ByteString as a base64-encoded string.
func (b ByteString) String() string {
	return base64.StdEncoding.EncodeToString([]byte(b))
}

// XMLElement is stored as string
type XMLElement string

// QualifiedName pairs a name with a namespace.
type QualifiedName struct {
	NamespaceIndex uint16
	Name           string
}

// String returns the name in the form "ns:name".
func (n QualifiedName) String() string {
	if n.NamespaceIndex == 0 {
		return n.Name
	}
	return fmt.Sprintf("%d:%s", n.NamespaceIndex, n.Name)
}

// LocalizedText pairs text and a Locale string.
type LocalizedText struct {
	Text   string
	Locale string
}

// BuiltInType is one of the primitive kinds used for value encoding.
type BuiltInType byte

// BuiltInTypes
const (
	BuiltInTypeNull BuiltInType = iota
	BuiltInTypeBoolean
	BuiltInTypeSByte
	BuiltInTypeByte
	BuiltInTypeInt16
	BuiltInTypeUInt16
	BuiltInTypeInt32
	BuiltInTypeUInt32
	BuiltInTypeInt64
	BuiltInTypeUInt64
	BuiltInTypeFloat
	BuiltInTypeDouble
	BuiltInTypeString
	BuiltInTypeDateTime
	BuiltInTypeGUID
	BuiltInTypeByteString
	BuiltInTypeXMLElement
	BuiltInTypeNodeID
	BuiltInTypeExpandedNodeID
	BuiltInTypeStatusCode
	BuiltInTypeQualifiedName
	BuiltInTypeLocalizedText
	BuiltInTypeExtensionObject
	BuiltInTypeDataValue
	BuiltInTypeVariant
	BuiltInTypeDiagnosticInfo
)

var builtInTypeNames = [...]string{
	"Null", "Boolean", "SByte", "Byte", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64",
	"Float", "Double", "String", "DateTime", "Guid", "ByteString", "XmlElement", "NodeId",
	"ExpandedNodeId", "StatusCode", "QualifiedName", "LocalizedText", "ExtensionObject",
	"DataValue", "Variant", "DiagnosticInfo",
}

func (t BuiltInType) String() string {
	if int(t) < len(builtInTypeNames) {
		return builtInTypeNames[t]
	}
	return fmt.Sprintf("BuiltInType(%d)", byte(t))
}

// BuiltInTypeOfValue returns the built-in type of a scalar value, or of the elements of a slice.
func BuiltInTypeOfValue(v Variant) BuiltInType {
	switch v.(type) {
	case nil:
		return BuiltInTypeNull
	case bool, []bool:
		return BuiltInTypeBoolean
	case int8, []int8:
		return BuiltInTypeSByte
	case uint8:
		return BuiltInTypeByte
	case int16, []int16:
		return BuiltInTypeInt16
	case uint16, []uint16:
		return BuiltInTypeUInt16
	case int32, []int32:
		return BuiltInTypeInt32
	case uint32, []uint32:
		return BuiltInTypeUInt32
	case int64, []int64:
		return BuiltInTypeInt64
	case uint64, []uint64:
		return BuiltInTypeUInt64
	case float32, []float32:
		return BuiltInTypeFloat
	case float64, []float64:
		return BuiltInTypeDouble
	case string, []string:
		return BuiltInTypeString
	case time.Time, []time.Time:
		return BuiltInTypeDateTime
	case uuid.UUID, []uuid.UUID:
		return BuiltInTypeGUID
	case ByteString, []ByteString, []byte:
		return BuiltInTypeByteString
	case XMLElement, []XMLElement:
		return BuiltInTypeXMLElement
	case NodeID, []NodeID:
		return BuiltInTypeNodeID
	case StatusCode, []StatusCode:
		return BuiltInTypeStatusCode
	case QualifiedName, []QualifiedName:
		return BuiltInTypeQualifiedName
	case LocalizedText, []LocalizedText:
		return BuiltInTypeLocalizedText
	case DataValue, []DataValue:
		return BuiltInTypeDataValue
	}
	return BuiltInTypeExtensionObject
}

// FormatValue renders a value as text. Slices render as "[a, b, c]".
func FormatValue(v Variant) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case uuid.UUID:
		return x.String()
	case ByteString:
		return x.String()
	case []byte:
		return base64.StdEncoding.EncodeToString(x)
	case XMLElement:
		return string(x)
	case NodeID:
		return x.String()
	case StatusCode:
		return x.String()
	case QualifiedName:
		return x.String()
	case LocalizedText:
		return x.Text
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
