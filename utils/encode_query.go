package utils

import (
	"net/url"
	"strconv"
)

// QueryBuilder collects non-zero query parameters in the order helpers are
// called. Repeated keys (category, brand, tags) append rather than replace.
type QueryBuilder struct {
	vals url.Values
}

func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{vals: url.Values{}}
}

func (b *QueryBuilder) Str(key, value string) *QueryBuilder {
	if value != "" {
		b.vals.Set(key, value)
	}
	return b
}

func (b *QueryBuilder) Int(key string, value int) *QueryBuilder {
	if value != 0 {
		b.vals.Set(key, strconv.Itoa(value))
	}
	return b
}

func (b *QueryBuilder) Float(key string, value float64) *QueryBuilder {
	if value != 0 {
		b.vals.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
	}
	return b
}

func (b *QueryBuilder) Bool(key string, value *bool) *QueryBuilder {
	if value != nil {
		b.vals.Set(key, strconv.FormatBool(*value))
	}
	return b
}

func (b *QueryBuilder) Ints(key string, values []int) *QueryBuilder {
	for _, v := range values {
		b.vals.Add(key, strconv.Itoa(v))
	}
	return b
}

func (b *QueryBuilder) Strs(key string, values []string) *QueryBuilder {
	for _, v := range values {
		if v != "" {
			b.vals.Add(key, v)
		}
	}
	return b
}

func (b *QueryBuilder) Values() url.Values {
	return b.vals
}
