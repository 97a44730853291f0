package server

import (
	"context"

	"github.com/ianremillard/govarlink/ifacereg"
	"github.com/ianremillard/govarlink/vtype"
)

// Service implements the well-known org.varlink.service introspection
// interface: GetInfo and GetInterfaceDescription, as specified by varlink
// and supplemented here from the originating implementation's
// serviceinterface.py and interface.py:render_interface_description, which
// the distilled spec names but does not fully specify.
type Service struct {
	Vendor   string
	Product  string
	Version  string
	URL      string
	Registry *Registry
}

// NewServiceInterface builds the org.varlink.service interface descriptor
// bound to svc. It does not register it: callers register the returned
// interface with svc.Registry themselves, normally once per process before
// accepting connections.
func NewServiceInterface(svc *Service) *ifacereg.Interface {
	iface := ifacereg.NewInterface(serviceInterface)

	iface.Register(&ifacereg.Method{
		Name: "GetInfo",
		Return: vtype.NewObject(map[string]vtype.Type{
			"vendor":     vtype.String,
			"product":    vtype.String,
			"version":    vtype.String,
			"url":        vtype.String,
			"interfaces": vtype.NewList(vtype.String),
		}, nil),
		Kind: ifacereg.Single,
		Call: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			names := svc.Registry.InterfaceNames()
			ifaces := make([]any, len(names))
			for i, n := range names {
				ifaces[i] = n
			}
			return map[string]any{
				"vendor":     svc.Vendor,
				"product":    svc.Product,
				"version":    svc.Version,
				"url":        svc.URL,
				"interfaces": ifaces,
			}, nil
		},
	})

	iface.Register(&ifacereg.Method{
		Name: "GetInterfaceDescription",
		Params: vtype.NewObject(map[string]vtype.Type{
			"interface": vtype.String,
		}, nil),
		Return: vtype.NewObject(map[string]vtype.Type{
			"description": vtype.String,
		}, nil),
		Kind: ifacereg.Single,
		Call: func(ctx context.Context, params map[string]any) (map[string]any, error) {
			name, _ := params["interface"].(string)
			target, ok := svc.Registry.Interface(name)
			if !ok {
				return nil, InterfaceNotFound(name)
			}
			return map[string]any{"description": target.RenderDescription()}, nil
		},
	})

	return iface
}
