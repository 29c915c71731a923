package hub_test

import (
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpalmerr/sitepulse/internal/hub"
	"github.com/jpalmerr/sitepulse/internal/store"
)

var _ = Describe("Hub", func() {
	var (
		log      *slog.Logger
		registry *store.Registry
		h        *hub.Hub
	)

	// sweep applies one sweep with the given outcomes for http://a and http://b.
	sweep := func(a, b store.Outcome) *store.Snapshot {
		at := time.Now()
		snap, err := registry.ApplySweep([]store.CheckResult{
			{URL: "http://a", CheckedAt: at, Outcome: a},
			{URL: "http://b", CheckedAt: at, Outcome: b},
		}, at)
		Expect(err).NotTo(HaveOccurred())
		return snap
	}

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))

		var err error
		registry, err = store.NewRegistry([]store.Target{{URL: "http://a"}, {URL: "http://b"}}, 10)
		Expect(err).NotTo(HaveOccurred())

		h = hub.New(registry.Initial(), 2, log)
	})

	AfterEach(func() {
		h.Close()
	})

	Describe("Subscribe", func() {
		It("should deliver the latest snapshot immediately", func() {
			o, err := h.Subscribe()
			Expect(err).NotTo(HaveOccurred())

			var got *store.Snapshot
			Eventually(o.C()).Should(Receive(&got))
			Expect(got.Seq()).To(Equal(uint64(0)))
			for _, ws := range got.Websites() {
				Expect(ws.Status).To(Equal(store.OutcomeUnknown))
			}
		})

		It("should deliver the most recent sweep to late observers", func() {
			sweep(store.OutcomeOnline, store.OutcomeOffline)
			latest := sweep(store.OutcomeOnline, store.OutcomeOnline)
			h.Publish(latest)

			o, err := h.Subscribe()
			Expect(err).NotTo(HaveOccurred())

			var got *store.Snapshot
			Eventually(o.C()).Should(Receive(&got))
			Expect(got).To(BeIdenticalTo(latest))
			Consistently(o.C(), 50*time.Millisecond).ShouldNot(Receive())
		})

		It("should assign unique ids", func() {
			a, _ := h.Subscribe()
			b, _ := h.Subscribe()
			Expect(a.ID()).NotTo(Equal(b.ID()))
			Expect(h.Len()).To(Equal(2))
		})

		It("should fail after Close", func() {
			h.Close()
			_, err := h.Subscribe()
			Expect(err).To(MatchError(hub.ErrClosed))
		})
	})

	Describe("Publish", func() {
		It("should succeed with zero observers", func() {
			snap := sweep(store.OutcomeOnline, store.OutcomeOffline)
			Expect(func() { h.Publish(snap) }).NotTo(Panic())
			Expect(h.Latest()).To(BeIdenticalTo(snap))
			Expect(h.Stats().Published).To(Equal(uint64(1)))
		})

		It("should deliver every snapshot in order to a keeping-up observer", func() {
			o, _ := h.Subscribe()
			Eventually(o.C()).Should(Receive())

			for i := 1; i <= 5; i++ {
				h.Publish(sweep(store.OutcomeOnline, store.OutcomeOffline))

				var got *store.Snapshot
				Eventually(o.C()).Should(Receive(&got))
				Expect(got.Seq()).To(Equal(uint64(i)))
			}
		})

		It("should reach all observers with the same snapshot", func() {
			observers := make([]*hub.Observer, 3)
			for i := range observers {
				observers[i], _ = h.Subscribe()
				Eventually(observers[i].C()).Should(Receive())
			}

			snap := sweep(store.OutcomeOnline, store.OutcomeOffline)
			h.Publish(snap)

			for _, o := range observers {
				var got *store.Snapshot
				Eventually(o.C()).Should(Receive(&got))
				Expect(got).To(BeIdenticalTo(snap))
			}
		})

		It("should ignore stale snapshots", func() {
			first := sweep(store.OutcomeOnline, store.OutcomeOnline)
			second := sweep(store.OutcomeOffline, store.OutcomeOffline)
			h.Publish(second)
			h.Publish(first)

			Expect(h.Latest()).To(BeIdenticalTo(second))
			Expect(h.Stats().Published).To(Equal(uint64(1)))
		})
	})

	Describe("slow observers", func() {
		It("should never block Publish and should converge on the newest state", func() {
			slow, _ := h.Subscribe()
			fast, _ := h.Subscribe()

			var (
				wg       sync.WaitGroup
				fastSeen []uint64
			)
			wg.Add(1)
			go func() {
				defer wg.Done()
				for snap := range fast.C() {
					fastSeen = append(fastSeen, snap.Seq())
				}
			}()

			done := make(chan struct{})
			var last *store.Snapshot
			go func() {
				defer GinkgoRecover()
				defer close(done)
				for i := 0; i < 20; i++ {
					last = sweep(store.OutcomeOnline, store.OutcomeOffline)
					h.Publish(last)
				}
			}()
			Eventually(done, time.Second).Should(BeClosed())

			// the slow observer's queue holds only the newest entries
			var got []*store.Snapshot
			for len(got) < 2 {
				var snap *store.Snapshot
				Eventually(slow.C()).Should(Receive(&snap))
				got = append(got, snap)
			}
			Expect(got[len(got)-1]).To(BeIdenticalTo(last))
			Expect(got[0].Seq()).To(BeNumerically("<", got[1].Seq()))
			Expect(slow.Dropped()).To(BeNumerically(">", 0))
			Expect(h.Stats().Dropped).To(BeNumerically(">=", slow.Dropped()))

			h.Unsubscribe(fast)
			wg.Wait()
			Expect(fastSeen).NotTo(BeEmpty())
			Expect(fastSeen[len(fastSeen)-1]).To(Equal(last.Seq()))
			for i := 1; i < len(fastSeen); i++ {
				Expect(fastSeen[i]).To(BeNumerically(">", fastSeen[i-1]))
			}
		})
	})

	Describe("Unsubscribe", func() {
		It("should close the channel and stop delivery", func() {
			o, _ := h.Subscribe()
			Eventually(o.C()).Should(Receive())

			h.Unsubscribe(o)
			Expect(h.Len()).To(BeZero())
			Eventually(o.C()).Should(BeClosed())

			Expect(func() { h.Publish(sweep(store.OutcomeOnline, store.OutcomeOnline)) }).NotTo(Panic())
		})

		It("should be idempotent", func() {
			o, _ := h.Subscribe()
			h.Unsubscribe(o)
			Expect(func() {
				h.Unsubscribe(o)
				h.Unsubscribe(nil)
			}).NotTo(Panic())
		})

		It("should be reachable through Observer.Close", func() {
			o, _ := h.Subscribe()
			o.Close()
			Expect(h.Len()).To(BeZero())
			Eventually(o.C()).Should(BeClosed())
		})

		It("should be safe after Close", func() {
			o, _ := h.Subscribe()
			h.Close()
			Expect(func() { h.Unsubscribe(o) }).NotTo(Panic())
		})
	})

	Describe("Connected", func() {
		It("should be true from Subscribe until Unsubscribe", func() {
			o, _ := h.Subscribe()
			Expect(o.Connected()).To(BeTrue())

			h.Unsubscribe(o)
			Expect(o.Connected()).To(BeFalse())
		})

		It("should be false after Observer.Close", func() {
			o, _ := h.Subscribe()
			o.Close()
			Expect(o.Connected()).To(BeFalse())
		})

		It("should be false for every observer after hub Close", func() {
			a, _ := h.Subscribe()
			b, _ := h.Subscribe()

			h.Close()
			Expect(a.Connected()).To(BeFalse())
			Expect(b.Connected()).To(BeFalse())
			Eventually(a.C()).Should(BeClosed())
			Eventually(b.C()).Should(BeClosed())
		})
	})

	Describe("concurrency", func() {
		It("should handle observers joining and leaving during publishes", func() {
			var wg sync.WaitGroup
			stop := make(chan struct{})

			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for {
						select {
						case <-stop:
							return
						default:
						}
						o, err := h.Subscribe()
						Expect(err).NotTo(HaveOccurred())
						Eventually(o.C()).Should(Receive())
						h.Unsubscribe(o)
					}
				}()
			}

			for i := 0; i < 50; i++ {
				h.Publish(sweep(store.OutcomeOnline, store.OutcomeOffline))
			}
			close(stop)
			wg.Wait()

			Expect(h.Len()).To(BeZero())
			Expect(h.Stats().Published).To(Equal(uint64(50)))
		})
	})
})
