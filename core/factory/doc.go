// Package factory instantiates pluggable modules, such as apportioners and
// metrics sinks, from configuration. A module is selected by its type name
// and receives its raw settings, which the factory decodes into a typed
// struct.
//
// Example usage:
//
//	reg := factory.NewRegistry[schedule.Apportioner]()
//	reg.Register("lp", func(conf map[string]any) (schedule.Apportioner, error) {
//	    var c struct{ Weighting string `json:"weighting"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return schedule.NewLPApportioner(nil), nil
//	})
//	a, err := reg.Create(factory.ModuleConfig{Type: "lp", Conf: map[string]any{"weighting": "rank"}})
package factory
