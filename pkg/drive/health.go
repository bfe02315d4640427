package drive

import "go.uber.org/zap"

// failureRun logs the first error of a consecutive run of failures and the
// recovery that ends it. Errors in between are dropped so a 50 Hz loop does
// not flood the log.
type failureRun struct {
	what   string
	log    *zap.SugaredLogger
	active bool
	count  int
}

func (f *failureRun) observe(err error) {
	if err == nil {
		if f.active {
			f.log.Infow(f.what+" recovered", "failures", f.count)
			f.active = false
			f.count = 0
		}
		return
	}
	f.count++
	if !f.active {
		f.active = true
		f.log.Warnw(f.what+" failing", "error", err)
	}
}
