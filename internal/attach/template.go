package attach

import (
	"fmt"
	"strconv"

	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/yosida95/uritemplate/v3"
)

var tileVars = []string{"z", "x", "y"}

// ParseLayerTemplate checks that the layer's URL template is well formed and
// addresses tiles by {z}, {x} and {y}.
func ParseLayerTemplate(layer core.MapLayer) (*uritemplate.Template, error) {
	if layer.URLTemplate == "" {
		return nil, fmt.Errorf("%w: %s: empty url template", core.ErrInvalidMapLayer, layer.Name)
	}
	tpl, err := uritemplate.New(layer.URLTemplate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrInvalidMapLayer, layer.Name, err)
	}
	names := make(map[string]bool)
	for _, n := range tpl.Varnames() {
		names[n] = true
	}
	for _, v := range tileVars {
		if !names[v] {
			return nil, fmt.Errorf("%w: %s: template missing {%s}", core.ErrInvalidMapLayer, layer.Name, v)
		}
	}
	return tpl, nil
}

// TileURL expands the layer template for one tile, filling {key} with the access key.
func TileURL(layer core.MapLayer, z, x, y int) (string, error) {
	tpl, err := ParseLayerTemplate(layer)
	if err != nil {
		return "", err
	}
	vals := uritemplate.Values{}
	vals.Set("z", uritemplate.String(strconv.Itoa(z)))
	vals.Set("x", uritemplate.String(strconv.Itoa(x)))
	vals.Set("y", uritemplate.String(strconv.Itoa(y)))
	vals.Set("key", uritemplate.String(layer.AccessKey))
	out, err := tpl.Expand(vals)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrInvalidMapLayer, layer.Name, err)
	}
	return out, nil
}
