package haven

import (
	"context"
	"sync"

	"github.com/haven-app/haven/internal/mealplan"
	"github.com/haven-app/haven/internal/reconcile"
	"github.com/haven-app/haven/internal/remote"
	"github.com/haven-app/haven/internal/schema"
)

// mirrorJob is one best-effort remote write. Jobs run one at a time in
// enqueue order so the remote sees local mutations in the order they
// happened.
type mirrorJob struct {
	op      string
	adapter remote.Adapter
	owner   string
	run     func(ctx context.Context, a remote.Adapter, owner string) error
}

// mirrorQueue is an unbounded FIFO of mirror jobs. push never blocks, so a
// slow or hung remote can't stall the writers holding c.mu.
type mirrorQueue struct {
	mu   sync.Mutex
	jobs []mirrorJob
	wake chan struct{}
}

func (q *mirrorQueue) init() {
	q.wake = make(chan struct{}, 1)
}

func (q *mirrorQueue) push(job mirrorJob) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *mirrorQueue) pop() (mirrorJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return mirrorJob{}, false
	}
	job := q.jobs[0]
	q.jobs[0] = mirrorJob{}
	q.jobs = q.jobs[1:]
	return job, true
}

func (c *Core) mirrorLoop() {
	for {
		select {
		case <-c.mirrors.wake:
			for {
				job, ok := c.mirrors.pop()
				if !ok {
					break
				}
				c.runMirror(job)
			}
		case <-c.done:
			return
		}
	}
}

func (c *Core) runMirror(job mirrorJob) {
	defer c.inflight.done()

	if err := job.run(context.Background(), job.adapter, job.owner); err != nil {
		c.logger.Printf("Warning: mirror %s failed: %v", job.op, err)
		c.transition(c.tracker.Fail(err))
	}
}

// enqueue schedules a mirror if a remote is attached. Callers hold c.mu so
// jobs are queued in mutation order.
func (c *Core) enqueue(op string, run func(ctx context.Context, a remote.Adapter, owner string) error) {
	c.remoteMu.Lock()
	a := c.adapter
	owner := remote.PublicOwner
	if c.remoteCfg != nil {
		owner = c.remoteCfg.OwnerOrPublic()
	}
	c.remoteMu.Unlock()

	if a == nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}

	c.inflight.add()
	c.mirrors.push(mirrorJob{op: op, adapter: a, owner: owner, run: run})
}

// Flush blocks until every queued mirror has finished.
func (c *Core) Flush() {
	c.inflight.wait()
}

func (c *Core) mirrorRecipe(r schema.Recipe) {
	c.enqueue("upsert recipe "+r.ID, func(ctx context.Context, a remote.Adapter, owner string) error {
		row, err := reconcile.RecipeToRow(r, owner)
		if err != nil {
			return err
		}
		return a.Upsert(ctx, remote.TableRecipes, row, remote.ConflictKeys(remote.TableRecipes))
	})
}

func (c *Core) mirrorRecipeDelete(id string) {
	c.enqueue("delete recipe "+id, func(ctx context.Context, a remote.Adapter, _ string) error {
		return a.Delete(ctx, remote.TableRecipes, id)
	})
}

func (c *Core) mirrorPlanCell(key mealplan.SlotKey, meals []schema.PlannedMeal) {
	c.enqueue("upsert plan "+key.Date+" "+string(key.Slot), func(ctx context.Context, a remote.Adapter, owner string) error {
		row, err := reconcile.PlanRowToRemote(mealplan.Row{Key: key, Meals: meals}, owner)
		if err != nil {
			return err
		}
		return a.Upsert(ctx, remote.TableMealPlans, row, remote.ConflictKeys(remote.TableMealPlans))
	})
}

func (c *Core) mirrorWater(key reconcile.WaterKey, amount int) {
	c.enqueue("upsert water "+key.Date+" "+string(key.Profile), func(ctx context.Context, a remote.Adapter, owner string) error {
		row := reconcile.WaterToRow(key, amount, owner)
		return a.Upsert(ctx, remote.TableWaterIntake, row, remote.ConflictKeys(remote.TableWaterIntake))
	})
}

// pending counts in-flight mirrors. Unlike sync.WaitGroup it allows add to
// race with wait.
type pending struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func (p *pending) init() {
	if p.cond == nil {
		p.cond = sync.NewCond(&p.mu)
	}
}

func (p *pending) add() {
	p.mu.Lock()
	p.init()
	p.n++
	p.mu.Unlock()
}

func (p *pending) done() {
	p.mu.Lock()
	p.init()
	p.n--
	if p.n == 0 {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

func (p *pending) wait() {
	p.mu.Lock()
	p.init()
	for p.n > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}
