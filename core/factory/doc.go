// Package factory instantiates pluggable modules, such as metrics sinks,
// from configuration. A module is selected by a type string and receives a
// map of raw settings, which Typed decodes into a settings struct.
//
//	reg := factory.NewRegistry[io.Writer]()
//	_ = reg.Register("file", factory.Typed(func(c struct {
//	    Path string `json:"path"`
//	}) (io.Writer, error) {
//	    return os.Create(c.Path)
//	}))
//	w, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "runs.log"}})
package factory
