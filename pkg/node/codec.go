package node

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode parses a node document.
func Decode(data []byte) (Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return Node{}, err
	}
	return n, nil
}

// UnmarshalJSON decodes the recognized keys into typed fields and keeps the
// rest in Attributes, preserving their order.
func (n *Node) UnmarshalJSON(data []byte) error {
	raw := NewAttributes()
	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}

	var out Node
	for p := raw.Oldest(); p != nil; p = p.Next() {
		var err error
		switch p.Key {
		case "name":
			err = json.Unmarshal(p.Value, &out.Name)
		case "fqdn":
			err = json.Unmarshal(p.Value, &out.FQDN)
		case "chef_environment":
			err = json.Unmarshal(p.Value, &out.ChefEnvironment)
		case "roles":
			err = json.Unmarshal(p.Value, &out.Roles)
		case "role":
			err = json.Unmarshal(p.Value, &out.Role)
		case "run_list":
			err = json.Unmarshal(p.Value, &out.RunList)
		case "recipes":
			err = json.Unmarshal(p.Value, &out.Recipes)
		case "tags":
			err = json.Unmarshal(p.Value, &out.Tags)
		case "virtualization":
			if isNull(p.Value) {
				continue
			}
			var v Virtualization
			if err = json.Unmarshal(p.Value, &v); err == nil {
				out.Virtualization = &v
			}
		case "kitchen":
			out.Links = decodeKitchenLinks(p.Value)
			if out.Attributes == nil {
				out.Attributes = NewAttributes()
			}
			out.Attributes.Set(p.Key, p.Value)
		default:
			if out.Attributes == nil {
				out.Attributes = NewAttributes()
			}
			out.Attributes.Set(p.Key, p.Value)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", p.Key, err)
		}
	}

	*n = out
	return nil
}

// MarshalJSON emits the typed fields first, then the remaining attributes in
// their original order.
func (n Node) MarshalJSON() ([]byte, error) {
	out := NewAttributes()
	w := fieldWriter{out: out}

	w.setString("name", n.Name)
	w.setString("fqdn", n.FQDN)
	w.setString("chef_environment", n.ChefEnvironment)
	w.setSlice("roles", n.Roles)
	w.setSlice("role", n.Role)
	w.setSlice("run_list", n.RunList)
	w.setSlice("recipes", n.Recipes)
	w.setSlice("tags", n.Tags)
	if n.Virtualization != nil {
		w.set("virtualization", n.Virtualization)
	}
	if w.err != nil {
		return nil, w.err
	}

	rawKitchen, hasKitchen := n.Attribute("kitchen")
	if n.Attributes != nil {
		for p := n.Attributes.Oldest(); p != nil; p = p.Next() {
			if _, taken := out.Get(p.Key); taken {
				continue
			}
			if p.Key == "kitchen" {
				merged, err := withKitchenLinks(p.Value, n.Links)
				if err != nil {
					return nil, fmt.Errorf("kitchen: %w", err)
				}
				out.Set(p.Key, merged)
				continue
			}
			out.Set(p.Key, p.Value)
		}
	}
	if !hasKitchen && len(n.Links) > 0 {
		merged, err := withKitchenLinks(rawKitchen, n.Links)
		if err != nil {
			return nil, fmt.Errorf("kitchen: %w", err)
		}
		out.Set("kitchen", merged)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes role and guests and keeps the rest in Extra.
func (v *Virtualization) UnmarshalJSON(data []byte) error {
	raw := NewAttributes()
	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}

	var out Virtualization
	for p := raw.Oldest(); p != nil; p = p.Next() {
		var err error
		switch p.Key {
		case "role":
			err = json.Unmarshal(p.Value, &out.Role)
		case "guests":
			err = json.Unmarshal(p.Value, &out.Guests)
		default:
			if out.Extra == nil {
				out.Extra = NewAttributes()
			}
			out.Extra.Set(p.Key, p.Value)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", p.Key, err)
		}
	}

	*v = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Virtualization) MarshalJSON() ([]byte, error) {
	out := NewAttributes()
	w := fieldWriter{out: out}
	w.setString("role", v.Role)
	if v.Guests != nil {
		w.set("guests", v.Guests)
	}
	if w.err != nil {
		return nil, w.err
	}
	if v.Extra != nil {
		for p := v.Extra.Oldest(); p != nil; p = p.Next() {
			if _, taken := out.Get(p.Key); !taken {
				out.Set(p.Key, p.Value)
			}
		}
	}
	return json.Marshal(out)
}

// decodeKitchenLinks reads kitchen.data.links. Anything unexpected yields no
// links; the raw value is kept as an attribute either way.
func decodeKitchenLinks(raw json.RawMessage) []ExternalLink {
	var k struct {
		Data struct {
			Links []ExternalLink `json:"links"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil
	}
	return k.Data.Links
}

// withKitchenLinks returns raw with data.links replaced by links, keeping
// every other key in order. Empty links remove data.links. A raw value that
// is not an object is returned unchanged unless there are links to write.
func withKitchenLinks(raw json.RawMessage, links []ExternalLink) (json.RawMessage, error) {
	top := NewAttributes()
	if isObject(raw) {
		if err := json.Unmarshal(raw, top); err != nil {
			return nil, err
		}
	} else if len(links) == 0 {
		return raw, nil
	}

	data := NewAttributes()
	if v, ok := top.Get("data"); ok && isObject(v) {
		if err := json.Unmarshal(v, data); err != nil {
			return nil, err
		}
	} else if ok && len(links) == 0 {
		return raw, nil
	}

	if len(links) > 0 {
		encoded, err := json.Marshal(links)
		if err != nil {
			return nil, err
		}
		data.Set("links", encoded)
	} else if _, had := data.Delete("links"); !had {
		return raw, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	top.Set("data", encoded)
	return json.Marshal(top)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// fieldWriter marshals typed fields into an ordered map and remembers the
// first error.
type fieldWriter struct {
	out *Attributes
	err error
}

func (w *fieldWriter) set(key string, v any) {
	if w.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		w.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	w.out.Set(key, data)
}

func (w *fieldWriter) setString(key, v string) {
	if v != "" {
		w.set(key, v)
	}
}

func (w *fieldWriter) setSlice(key string, v []string) {
	if v != nil {
		w.set(key, v)
	}
}
