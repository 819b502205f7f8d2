package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"strconv"
)

type S3ObjectInfo struct {
	Bucket string
	Key    string
}

// AccessEvent is a single door/building entry record as stored in the table.
type AccessEvent struct {
	EventKey       FieldValue `json:"event_key" dynamodbav:"event_key"`
	BuildingCode   FieldValue `json:"building_code" dynamodbav:"building_code"`
	BuildingDoorID FieldValue `json:"building_door_id" dynamodbav:"building_door_id"`
	AccessTime     FieldValue `json:"access_time" dynamodbav:"access_time"`
	UserIdentity   FieldValue `json:"user_identity" dynamodbav:"user_identity"`
}

// FieldValue holds one field exactly as it appeared in the source object:
// a string, number, bool, null, array or object. It is written to DynamoDB
// as the matching attribute type (S, N, BOOL, NULL, L, M) and never
// normalized.
type FieldValue struct {
	val any
}

func StringValue(s string) FieldValue {
	return FieldValue{val: s}
}

func NumberValue(n string) FieldValue {
	return FieldValue{val: json.Number(n)}
}

// String returns the text of a string value and the JSON encoding of
// anything else.
func (v FieldValue) String() string {
	if s, ok := v.val.(string); ok {
		return s
	}
	b, err := json.Marshal(v.val)
	if err != nil {
		return fmt.Sprint(v.val)
	}

	return string(b)
}

func (v FieldValue) IsNumeric() bool {
	_, ok := v.val.(json.Number)
	return ok
}

func (v FieldValue) IsNull() bool {
	return v.val == nil
}

// rank orders value kinds: numbers, then strings, then everything else.
func (v FieldValue) rank() int {
	switch v.val.(type) {
	case json.Number:
		return 0
	case string:
		return 1
	default:
		return 2
	}
}

// Less orders numbers numerically and strings lexicographically. When a
// table holds mixed kinds, numbers sort first, then strings, then other
// values by their JSON text.
func (v FieldValue) Less(other FieldValue) bool {
	if v.rank() != other.rank() {
		return v.rank() < other.rank()
	}
	if v.IsNumeric() {
		a, errA := strconv.ParseFloat(v.String(), 64)
		b, errB := strconv.ParseFloat(other.String(), 64)
		if errA == nil && errB == nil {
			return a < b
		}
	}

	return v.String() < other.String()
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.val)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var val any
	if err := dec.Decode(&val); err != nil {
		return err
	}
	v.val = val

	return nil
}

func (v FieldValue) MarshalDynamoDBAttributeValue(av *dynamodb.AttributeValue) error {
	converted, err := toAttributeValue(v.val)
	if err != nil {
		return err
	}
	*av = *converted

	return nil
}

func (v *FieldValue) UnmarshalDynamoDBAttributeValue(av *dynamodb.AttributeValue) error {
	val, err := fromAttributeValue(av)
	if err != nil {
		return err
	}
	v.val = val

	return nil
}

func toAttributeValue(val any) (*dynamodb.AttributeValue, error) {
	switch v := val.(type) {
	case nil:
		return &dynamodb.AttributeValue{NULL: aws.Bool(true)}, nil
	case bool:
		return &dynamodb.AttributeValue{BOOL: aws.Bool(v)}, nil
	case json.Number:
		return &dynamodb.AttributeValue{N: aws.String(v.String())}, nil
	case string:
		return &dynamodb.AttributeValue{S: aws.String(v)}, nil
	case []any:
		list := make([]*dynamodb.AttributeValue, 0, len(v))
		for _, elem := range v {
			av, err := toAttributeValue(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &dynamodb.AttributeValue{L: list}, nil
	case map[string]any:
		m := make(map[string]*dynamodb.AttributeValue, len(v))
		for key, elem := range v {
			av, err := toAttributeValue(elem)
			if err != nil {
				return nil, err
			}
			m[key] = av
		}
		return &dynamodb.AttributeValue{M: m}, nil
	default:
		return nil, fmt.Errorf("unsupported field value of type %T", val)
	}
}

func fromAttributeValue(av *dynamodb.AttributeValue) (any, error) {
	switch {
	case av == nil || av.NULL != nil:
		return nil, nil
	case av.BOOL != nil:
		return *av.BOOL, nil
	case av.N != nil:
		return json.Number(*av.N), nil
	case av.S != nil:
		return *av.S, nil
	case av.L != nil:
		list := make([]any, 0, len(av.L))
		for _, elem := range av.L {
			val, err := fromAttributeValue(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case av.M != nil:
		m := make(map[string]any, len(av.M))
		for key, elem := range av.M {
			val, err := fromAttributeValue(elem)
			if err != nil {
				return nil, err
			}
			m[key] = val
		}
		return m, nil
	case av.SS != nil:
		list := make([]any, 0, len(av.SS))
		for _, s := range av.SS {
			list = append(list, aws.StringValue(s))
		}
		return list, nil
	case av.NS != nil:
		list := make([]any, 0, len(av.NS))
		for _, n := range av.NS {
			list = append(list, json.Number(aws.StringValue(n)))
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported attribute %s", av.String())
	}
}
