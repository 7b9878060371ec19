package tools

import "fmt"

// validateParameters performs a recursive type/enum/range/length check of
// args against a JSON-schema-like spec (as produced by a Tool's
// Parameters()). Additional properties not named in the schema are
// tolerated. The root schema is always treated as an object.
func validateParameters(schema map[string]interface{}, args map[string]interface{}) []error {
	return validateObject(schema, args, "")
}

func validateObject(schema map[string]interface{}, value interface{}, path string) []error {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return []error{fmt.Errorf("%s: expected object", label(path))}
	}

	var errs []error

	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if _, present := obj[name]; !present {
				errs = append(errs, fmt.Errorf("missing required field '%s'", joinPath(path, name)))
			}
		}
	} else if requiredAny, ok := schema["required"].([]interface{}); ok {
		for _, r := range requiredAny {
			name, _ := r.(string)
			if name == "" {
				continue
			}
			if _, present := obj[name]; !present {
				errs = append(errs, fmt.Errorf("missing required field '%s'", joinPath(path, name)))
			}
		}
	}

	properties, _ := schema["properties"].(map[string]interface{})
	for name, rawFieldSchema := range properties {
		fieldValue, present := obj[name]
		if !present {
			continue
		}
		fieldSchema, ok := rawFieldSchema.(map[string]interface{})
		if !ok {
			continue
		}
		errs = append(errs, validateValue(fieldSchema, fieldValue, joinPath(path, name))...)
	}

	return errs
}

func validateValue(schema map[string]interface{}, value interface{}, path string) []error {
	typeName, _ := schema["type"].(string)

	switch typeName {
	case "string":
		s, ok := value.(string)
		if !ok {
			return []error{fmt.Errorf("%s: expected string", label(path))}
		}
		if enum, ok := schema["enum"].([]interface{}); ok && len(enum) > 0 {
			matched := false
			for _, e := range enum {
				if es, ok := e.(string); ok && es == s {
					matched = true
					break
				}
			}
			if !matched {
				return []error{fmt.Errorf("%s: value not in enum", label(path))}
			}
		}
		if minLen, ok := numericValue(schema["minLength"]); ok && float64(len(s)) < minLen {
			return []error{fmt.Errorf("%s: shorter than minLength", label(path))}
		}
		if maxLen, ok := numericValue(schema["maxLength"]); ok && float64(len(s)) > maxLen {
			return []error{fmt.Errorf("%s: longer than maxLength", label(path))}
		}
		return nil

	case "integer", "number":
		n, ok := numericValue(value)
		if !ok {
			return []error{fmt.Errorf("%s: expected %s", label(path), typeName)}
		}
		if typeName == "integer" && n != float64(int64(n)) {
			return []error{fmt.Errorf("%s: expected integer", label(path))}
		}
		if min, ok := numericValue(schema["minimum"]); ok && n < min {
			return []error{fmt.Errorf("%s: below minimum", label(path))}
		}
		if max, ok := numericValue(schema["maximum"]); ok && n > max {
			return []error{fmt.Errorf("%s: above maximum", label(path))}
		}
		return nil

	case "boolean":
		if _, ok := value.(bool); !ok {
			return []error{fmt.Errorf("%s: expected boolean", label(path))}
		}
		return nil

	case "array":
		arr, ok := value.([]interface{})
		if !ok {
			return []error{fmt.Errorf("%s: expected array", label(path))}
		}
		items, _ := schema["items"].(map[string]interface{})
		if items == nil {
			return nil
		}
		var errs []error
		for i, item := range arr {
			errs = append(errs, validateValue(items, item, fmt.Sprintf("%s[%d]", path, i))...)
		}
		return errs

	case "object":
		return validateObject(schema, value, path)

	default:
		return nil
	}
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func label(path string) string {
	if path == "" {
		return "value"
	}
	return path
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
