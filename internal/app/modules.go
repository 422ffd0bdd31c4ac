package app

import (
	"github.com/vk/assetgraph/internal/config"
	"github.com/vk/assetgraph/internal/registry"
	"github.com/vk/assetgraph/modules/compress"
	"github.com/vk/assetgraph/modules/cssimport"
	"github.com/vk/assetgraph/modules/envdefine"
	"github.com/vk/assetgraph/modules/esbuild"
	"github.com/vk/assetgraph/modules/passthrough"
	"github.com/vk/assetgraph/modules/rename"
	"github.com/vk/assetgraph/modules/rewrite"
	"github.com/vk/assetgraph/modules/shell"
)

// coreModules is the definitive list of all stage modules compiled into the
// assetgraph binary. Shell scripts run from the source root.
func coreModules(model *config.Model) []registry.Module {
	return []registry.Module{
		&passthrough.Module{},
		&rename.Module{},
		&rewrite.Module{},
		&cssimport.Module{},
		&envdefine.Module{},
		&esbuild.Module{},
		&compress.Module{},
		&shell.Module{Dir: model.SourceRoot},
	}
}
