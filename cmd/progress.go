package cmd

import (
	"db-automigrate/internal/engine"
	"db-automigrate/internal/schema"

	"github.com/gosuri/uiprogress"
)

// progressObserver advances one bar tick per reconciled table.
type progressObserver struct {
	engine.NopObserver
	progress *uiprogress.Progress
	bar      *uiprogress.Bar
}

func newProgressObserver(tables int) *progressObserver {
	p := uiprogress.New()
	bar := p.AddBar(tables).AppendCompleted().PrependElapsed()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return "Reconciling: "
	})
	return &progressObserver{progress: p, bar: bar}
}

func (o *progressObserver) Start() { o.progress.Start() }

func (o *progressObserver) Stop() { o.progress.Stop() }

func (o *progressObserver) TableReconciled(*schema.TargetTable, *engine.TableResult) {
	o.bar.Incr()
}
