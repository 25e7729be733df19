package backtest

// Observer receives run callbacks. Calls arrive from the goroutine that
// called Run, in chronological event order.
type Observer interface {
	RunStarted(config string, events int)
	EventProcessed(config string, index, total int, trades []Trade, skip *Skip)
	RunFinished(config string, result *Result)
}

// NopObserver ignores every callback
type NopObserver struct{}

func (NopObserver) RunStarted(string, int)                          {}
func (NopObserver) EventProcessed(string, int, int, []Trade, *Skip) {}
func (NopObserver) RunFinished(string, *Result)                     {}

// MultiObserver fans callbacks out in order
type MultiObserver []Observer

func (m MultiObserver) RunStarted(config string, events int) {
	for _, o := range m {
		o.RunStarted(config, events)
	}
}

func (m MultiObserver) EventProcessed(config string, index, total int, trades []Trade, skip *Skip) {
	for _, o := range m {
		o.EventProcessed(config, index, total, trades, skip)
	}
}

func (m MultiObserver) RunFinished(config string, result *Result) {
	for _, o := range m {
		o.RunFinished(config, result)
	}
}
