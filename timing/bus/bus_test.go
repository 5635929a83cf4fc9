package bus_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/snoopsim/timing/bus"
)

var _ = Describe("Bus", func() {
	var b *bus.Bus

	BeforeEach(func() {
		b = bus.New(4)
	})

	Describe("Acquire", func() {
		It("should grant ownership when the bus is free", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			Expect(b.OwnerID()).To(Equal(0))
		})

		It("should let the owner reacquire on retry cycles", func() {
			Expect(b.Acquire(2)).To(BeTrue())
			Expect(b.Acquire(2)).To(BeTrue())
			Expect(b.OwnerID()).To(Equal(2))
		})

		It("should deny while another controller owns the bus", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			Expect(b.Acquire(1)).To(BeFalse())
			Expect(b.OwnerID()).To(Equal(0))
		})

		It("should keep ownership unique", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			Expect(b.Acquire(1)).To(BeFalse())
			Expect(b.Acquire(2)).To(BeFalse())
			Expect(b.Acquire(3)).To(BeFalse())
			Expect(b.OwnerID()).To(Equal(0))
		})
	})

	Describe("Release", func() {
		It("should pass ownership to the first registered waiter", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			Expect(b.Acquire(2)).To(BeFalse())
			Expect(b.Acquire(1)).To(BeFalse())

			b.Release(0)

			Expect(b.OwnerID()).To(Equal(2))
		})

		It("should leave the bus free when no waiter is queued", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			b.Release(0)
			Expect(b.OwnerID()).To(Equal(bus.None))
		})

		It("should ignore a release by a non-owner", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			b.Release(1)
			Expect(b.OwnerID()).To(Equal(0))
		})

		It("should clear the transient transaction flags", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			b.AlreadyFlush = true
			b.AlreadyBusRd = true
			b.SharedLine = true

			b.Release(0)

			Expect(b.AlreadyFlush).To(BeFalse())
			Expect(b.AlreadyBusRd).To(BeFalse())
			Expect(b.SharedLine).To(BeFalse())
		})
	})

	Describe("fairness latch", func() {
		It("should deny all acquirers in the cycle of a release", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			b.Release(0)

			Expect(b.Acquire(0)).To(BeFalse())
			Expect(b.Acquire(1)).To(BeFalse())
		})

		It("should deny even the waiter that inherited ownership", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			Expect(b.Acquire(1)).To(BeFalse())
			b.Release(0)

			Expect(b.Acquire(1)).To(BeFalse())
		})

		It("should grant the inheriting waiter on the next cycle", func() {
			Expect(b.Acquire(0)).To(BeTrue())
			Expect(b.Acquire(1)).To(BeFalse())
			b.Release(0)
			b.Reset()

			Expect(b.Acquire(1)).To(BeTrue())
			Expect(b.Acquire(0)).To(BeFalse())
		})
	})

	Describe("request line", func() {
		It("should hold the owner's request", func() {
			Expect(b.Acquire(1)).To(BeTrue())
			b.SetRequest(bus.Request{Kind: bus.BusRd, Address: 0x1000, OriginID: 1})

			req := b.Request()
			Expect(req).NotTo(BeNil())
			Expect(req.Kind).To(Equal(bus.BusRd))
			Expect(req.Address).To(Equal(uint32(0x1000)))
			Expect(req.OriginID).To(Equal(1))
		})

		It("should panic on a request from a non-owner", func() {
			Expect(b.Acquire(1)).To(BeTrue())
			Expect(func() {
				b.SetRequest(bus.Request{Kind: bus.BusRd, Address: 0x1000, OriginID: 2})
			}).To(Panic())
		})

		It("should clear the request on release", func() {
			Expect(b.Acquire(1)).To(BeTrue())
			b.SetRequest(bus.Request{Kind: bus.BusRd, Address: 0x1000, OriginID: 1})
			b.Release(1)
			Expect(b.Request()).To(BeNil())
		})
	})

	Describe("response lines", func() {
		It("should report waiting controllers and rearm their completion", func() {
			b.SetCompleted(1, true)
			b.SetWait(1, true)
			b.SetCompleted(2, true)

			Expect(b.AnyWaiting()).To(BeTrue())
			Expect(b.Completed(1)).To(BeFalse())
			Expect(b.Completed(2)).To(BeTrue())
		})

		It("should report presence from any controller", func() {
			Expect(b.AnyPresent()).To(BeFalse())
			b.SetIsPresent(3, true)
			Expect(b.AnyPresent()).To(BeTrue())
		})

		It("should clear all response vectors at once", func() {
			b.SetCompleted(0, true)
			b.SetIsPresent(1, true)
			b.SetWait(2, true)

			b.ClearResponses()

			Expect(b.Completed(0)).To(BeFalse())
			Expect(b.IsPresent(1)).To(BeFalse())
			Expect(b.Wait(2)).To(BeFalse())
			Expect(b.AnyWaiting()).To(BeFalse())
			Expect(b.AnyPresent()).To(BeFalse())
		})
	})
})
