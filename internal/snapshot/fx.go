package snapshot

import "go.uber.org/fx"

var Module = fx.Module("snapshot",
	fx.Provide(
		fx.Annotate(NewFileSource, fx.As(new(Source))),
	),
)
