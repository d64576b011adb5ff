package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// GetTagValue returns the value of a tag with the given key
func GetTagValue(tags []types.Tag, key string) string {
	for _, tag := range tags {
		if tag.Key != nil && *tag.Key == key {
			if tag.Value != nil {
				return *tag.Value
			}
			return ""
		}
	}
	return ""
}

// GetName returns the value of the Name tag
func GetName(tags []types.Tag) string {
	return GetTagValue(tags, "Name")
}

// GetTagsMap converts a slice of tags to a map
func GetTagsMap(tags []types.Tag) map[string]string {
	result := make(map[string]string)
	for _, tag := range tags {
		if tag.Key != nil && tag.Value != nil {
			result[*tag.Key] = *tag.Value
		}
	}
	return result
}

// ConvertToEC2Tags converts a map of tags to a slice of EC2 tags sorted by key
func ConvertToEC2Tags(tags map[string]string) []types.Tag {
	result := make([]types.Tag, 0, len(tags))
	for _, k := range SortedKeys(tags) {
		result = append(result, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return result
}

// SortedKeys returns the keys of a tag map in sorted order
func SortedKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseTags parses "Key=Value" pairs into a tag map. Keys must be unique.
func ParseTags(pairs []string) (map[string]string, error) {
	tags := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid tag %q, expected Key=Value", pair)
		}
		if _, dup := tags[key]; dup {
			return nil, fmt.Errorf("duplicate tag key %q", key)
		}
		tags[key] = strings.TrimSpace(value)
	}
	return tags, nil
}

// FormatTags renders a tag map as comma separated "Key=Value" pairs
func FormatTags(tags map[string]string) string {
	pairs := make([]string, 0, len(tags))
	for _, k := range SortedKeys(tags) {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, ",")
}
