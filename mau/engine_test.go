package mau_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/mausim/config"
	"github.com/sarchlab/mausim/mau"
	"github.com/sarchlab/mausim/phv"
)

var _ = Describe("Engine", func() {
	Context("with ternary tables", func() {
		var (
			cfg *config.Config
			e   *mau.Engine
		)

		build := func() {
			var err error
			e, err = mau.Build(0, cfg)
			Expect(err).NotTo(HaveOccurred())
		}

		BeforeEach(func() {
			cfg = twoTableConfig()
		})

		It("should follow the chain of hits through the stage", func() {
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			out, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(out.IngressNext).To(Equal(config.NextTableEnd))
			Expect(out.EgressNext).To(Equal(config.NextTableEnd))
			Expect(out.Egress).To(BeNil())
			Expect(out.Ingress.Get(10)).To(Equal(uint32(0x1234)))
			Expect(out.Ingress.Get(11)).To(Equal(uint32(0x42)))

			res := e.Result(0)
			Expect(res.Active()).To(BeTrue())
			Expect(res.TernaryMatch()).To(BeTrue())
			Expect(res.HitEntry()).To(Equal(0))
			Expect(res.Instr()).To(Equal(3))
			Expect(e.Result(1).Active()).To(BeTrue())
			Expect(e.Result(1).NextTablePred()).To(Equal(config.NextTableEnd))
		})

		It("should leave the input Phv untouched", func() {
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			_, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(p.IsValid(10)).To(BeFalse())
		})

		It("should continue at the miss next table", func() {
			build()
			p := newPhv(map[int]uint32{0: 0x0B, 1: 0x01})

			out, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Result(0).Match()).To(BeFalse())
			Expect(e.Result(0).Active()).To(BeTrue())
			Expect(out.Ingress.IsValid(10)).To(BeFalse())
			Expect(out.Ingress.Get(11)).To(Equal(uint32(0x42)))
		})

		It("should not activate tables off the chain", func() {
			cfg.Stages[0].Tables[0].Entries[0].NextTable = config.NextTableEnd
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			out, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Result(1).Valid()).To(BeTrue())
			Expect(e.Result(1).Match()).To(BeTrue())
			Expect(e.Result(1).Active()).To(BeFalse())
			Expect(out.Ingress.IsValid(11)).To(BeFalse())
			Expect(e.Addresses().StatsValid[1]).To(BeFalse())
		})

		It("should start in the middle of the stage", func() {
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			out, err := e.Execute(p, nil, config.TableID(0, 1), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Result(0).Valid()).To(BeFalse())
			Expect(out.Ingress.IsValid(10)).To(BeFalse())
			Expect(out.Ingress.Get(11)).To(Equal(uint32(0x42)))
		})

		It("should pass a gress through when its next table is later", func() {
			build()
			p := newPhv(map[int]uint32{0: 0x0A})

			out, err := e.Execute(p, nil, config.TableID(4, 2), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(out.IngressNext).To(Equal(config.TableID(4, 2)))
			Expect(e.Result(0).Valid()).To(BeFalse())
		})

		It("should report priorities when configured to", func() {
			cfg.LookupReturnPri = true
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			_, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Result(0).HitEntry()).To(Equal(0))
			Expect(e.Result(0).HitIndex()).To(Equal(0))
		})

		It("should distribute stats and action data addresses of hits", func() {
			cfg.Stages[0].Tables[0].Entries[0].Data |= 0x77<<48 | 0x0100<<32
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			_, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			addrs := e.Addresses()
			Expect(addrs.Stats[0]).To(Equal(uint32(0x77)))
			Expect(addrs.StatsValid[0]).To(BeTrue())
			Expect(addrs.ActionData[0]).To(Equal(uint32(0x0100)))
			Expect(addrs.MeterValid[0]).To(BeTrue())
		})

		It("should mark the TCAMs it searched as powered", func() {
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			_, err := e.Execute(p, nil, config.TableID(0, 1), config.NextTableEnd)
			Expect(err).NotTo(HaveOccurred())

			powered := e.PoweredTcams()
			Expect(powered.Test(0)).To(BeFalse())
			Expect(powered.Test(1)).To(BeTrue())

			e.ResetResources()
			Expect(e.PoweredTcams().Any()).To(BeFalse())
			Expect(e.Result(1).Valid()).To(BeFalse())
		})

		Context("with a gateway", func() {
			BeforeEach(func() {
				cfg.Stages[0].Tables[0].Gateway = &config.GatewayConfig{
					Key: []config.KeyField{{Word: 2, Width: 8}},
					Rows: []config.GatewayRow{
						{Value: 1, Mask: 0xFF, Inhibit: true, NextTable: config.TableID(3, 0)},
						{Value: 2, Mask: 0xFF},
					},
				}
				build()
			})

			It("should let an inhibiting row own the next table", func() {
				p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01, 2: 1})

				out, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

				Expect(err).NotTo(HaveOccurred())
				res := e.Result(0)
				Expect(res.GatewayMatch()).To(BeTrue())
				Expect(res.GatewayInhibit()).To(BeTrue())
				Expect(res.GatewayPayloadDisabled()).To(BeTrue())
				Expect(res.TernaryMatch()).To(BeTrue())
				Expect(res.HitEntry()).To(Equal(0))
				Expect(res.Payload()).To(BeZero())
				Expect(e.Result(1).Active()).To(BeFalse())
				Expect(out.IngressNext).To(Equal(config.TableID(3, 0)))
				Expect(out.Ingress.IsValid(10)).To(BeFalse())
			})

			It("should run the table behind a non-inhibiting row", func() {
				p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01, 2: 2})

				out, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

				Expect(err).NotTo(HaveOccurred())
				Expect(e.Result(0).GatewayMatch()).To(BeTrue())
				Expect(e.Result(0).GatewayInhibit()).To(BeFalse())
				Expect(out.Ingress.Get(10)).To(Equal(uint32(0x1234)))
				Expect(out.IngressNext).To(Equal(config.NextTableEnd))
			})
		})

		It("should not skip a stage that must be match dependent", func() {
			cfg.Stages[0].Tables[1].Entries[0].NextTable = config.TableID(2, 0)
			cfg.Stages[1].Features.MustBeMatchDependent = true
			cfg.Stages[1].Tables = []config.TableConfig{
				{LogicalTable: 3, MissNextTable: config.NextTableEnd},
			}
			build()
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			out, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(out.IngressNext).To(Equal(config.TableID(1, 3)))
		})

		It("should fail on a next table that goes backwards", func() {
			cfg.Stages[1].Tables = []config.TableConfig{
				{
					LogicalTable:  0,
					Key:           []config.KeyField{{Word: 0, Width: 8}},
					MissNextTable: config.TableID(0, 5),
				},
			}
			var err error
			e, err = mau.Build(1, cfg)
			Expect(err).NotTo(HaveOccurred())

			_, err = e.Execute(newPhv(nil), nil, config.TableID(1, 0), config.NextTableEnd)

			Expect(err).To(MatchError(mau.ErrFatal))
			Expect(e.Result(0).Error()).To(BeTrue())
		})

		It("should fail when the chain names a missing table", func() {
			build()

			_, err := e.Execute(newPhv(nil), nil, config.TableID(0, 4), config.NextTableEnd)

			Expect(err).To(MatchError(mau.ErrFatal))
		})

		It("should refuse two tables in one TCAM", func() {
			cfg.Stages[0].Tables[1].Tcam = 0

			_, err := mau.Build(0, cfg)

			Expect(err).To(HaveOccurred())
		})

		It("should publish a snapshot of each header event", func() {
			build()
			rec := &hookRecorder{}
			e.AcceptHook(rec)
			p := newPhv(map[int]uint32{0: 0x0A, 1: 0x01})

			_, err := e.Execute(p, nil, config.TableID(0, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.steps).To(Equal(e.StepNames(mau.ListHeader)))
			Expect(rec.snapshots).To(HaveLen(1))
			Expect(rec.snapshots[0].Results).To(HaveLen(2))
			Expect(rec.snapshots[0].Next[0]).To(Equal(config.NextTableEnd))
		})
	})

	Context("with rows", func() {
		var (
			mockCtrl *gomock.Controller
			e        *mau.Engine
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())

			var err error
			e, err = mau.New(0, config.Default())
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should drive a row through the header steps in order", func() {
			row := NewMockSramRow(mockCtrl)
			Expect(e.SetRow(3, row)).To(Succeed())

			p := newPhv(nil)
			p.SetTimeInfo(phv.TimeInfo{
				MeterTick: [phv.NumAlus]uint64{100},
				Random:    [phv.NumAlus]uint64{7},
			})
			state := mau.AluState{ALU: 0, TickTime: 100, Random: 7}

			gomock.InOrder(
				row.EXPECT().FetchAddresses(gomock.Any()),
				row.EXPECT().FetchAddresses(gomock.Any()),
				row.EXPECT().ClaimAddrs(gomock.Any()),
				row.EXPECT().RunSelectorRead(gomock.Any()),
				row.EXPECT().RunSelectorALUWithState(gomock.Any(), state),
				row.EXPECT().RunRead(gomock.Any()),
				row.EXPECT().RunCmpALUsWithState(gomock.Any(), state),
				row.EXPECT().RunALUsWithState(gomock.Any(), state),
				row.EXPECT().RunActionRead(gomock.Any()),
				row.EXPECT().RunWrite(gomock.Any()),
				row.EXPECT().DriveActionOutputHV(gomock.Any()),
			)

			_, err := e.Execute(p, nil, config.TableID(5, 0), config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should read the colour map RAMs once per header", func() {
			m := NewMockMapram(mockCtrl)
			Expect(e.SetMapram(47, m)).To(Succeed())
			m.EXPECT().RunColorRead(gomock.Any()).
				Do(func(ctx *mau.RowContext) {
					Expect(ctx.List).To(Equal(mau.ListHeader))
					Expect(ctx.Addrs).NotTo(BeNil())
				})

			_, err := e.Execute(newPhv(nil), nil, config.NextTableEnd, config.NextTableEnd)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject topology out of range", func() {
			Expect(e.SetRow(mau.NumLogicalRows, nil)).To(MatchError(mau.ErrFatal))
			Expect(e.SetTable(-1, nil)).To(MatchError(mau.ErrFatal))
			Expect(e.SetTcam(24, nil)).To(MatchError(mau.ErrFatal))
			Expect(e.SetMapram(mau.NumMaprams, nil)).To(MatchError(mau.ErrFatal))
		})

		It("should finish deferred updates at end of packet", func() {
			row := NewMockSramRow(mockCtrl)
			Expect(e.SetRow(7, row)).To(Succeed())

			eop := mau.Eop{}
			eop.TickTime[1] = 11
			eop.Random[1] = 5
			state := mau.AluState{ALU: 1, TickTime: 11, Random: 5}

			gomock.InOrder(
				row.EXPECT().FetchAddresses(gomock.Any()).
					Do(func(ctx *mau.RowContext) {
						Expect(ctx.Eop).NotTo(BeNil())
						Expect(ctx.List).To(Equal(mau.ListEop))
					}),
				row.EXPECT().ClaimAddrs(gomock.Any()),
				row.EXPECT().RunRead(gomock.Any()),
				row.EXPECT().RunCmpALUsWithState(gomock.Any(), state),
				row.EXPECT().RunALUsWithState(gomock.Any(), state),
				row.EXPECT().RunWrite(gomock.Any()),
			)

			Expect(e.HandleEop(eop)).To(Succeed())
		})

		It("should finish byte counts at threaded end of packet", func() {
			row := NewMockSramRow(mockCtrl)
			Expect(e.SetRow(0, row)).To(Succeed())

			gomock.InOrder(
				row.EXPECT().FetchAddresses(gomock.Any()),
				row.EXPECT().ClaimAddrs(gomock.Any()),
				row.EXPECT().RunRead(gomock.Any()),
				row.EXPECT().RunWrite(gomock.Any()).
					Do(func(ctx *mau.RowContext) {
						Expect(ctx.Teop.ByteLen).To(Equal(uint32(64)))
					}),
			)

			Expect(e.HandleTeop(mau.Teop{ByteLen: 64})).To(Succeed())
		})

		Context("on the register bus", func() {
			var target, other *MockSramRow

			BeforeEach(func() {
				target = NewMockSramRow(mockCtrl)
				other = NewMockSramRow(mockCtrl)
				Expect(e.SetRow(5, target)).To(Succeed())
				Expect(e.SetRow(2, other)).To(Succeed())
			})

			It("should read through the addressed row only", func() {
				gomock.InOrder(
					target.EXPECT().FetchAddresses(gomock.Any()),
					target.EXPECT().ClaimAddrs(gomock.Any()),
					target.EXPECT().RunRead(gomock.Any()).
						Do(func(ctx *mau.RowContext) {
							Expect(ctx.Pbus.Col).To(Equal(1))
							Expect(ctx.Pbus.Index).To(Equal(9))
							Expect(ctx.Pbus.Lock).To(BeTrue())
							ctx.Pbus.ReadData = [2]uint64{0xAB, 0xCD}
						}),
				)

				data, err := e.PbusRead(5, 1, 9, true, false)

				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([2]uint64{0xAB, 0xCD}))
			})

			It("should write through the addressed row", func() {
				gomock.InOrder(
					target.EXPECT().FetchAddresses(gomock.Any()),
					target.EXPECT().ClaimAddrs(gomock.Any()),
					target.EXPECT().RunWrite(gomock.Any()).
						Do(func(ctx *mau.RowContext) {
							Expect(ctx.Pbus.Write).To(BeTrue())
							Expect(ctx.Pbus.Data).To(Equal([2]uint64{1, 2}))
						}),
				)

				Expect(e.PbusWrite(5, 0, 3, [2]uint64{1, 2})).To(Succeed())
			})

			It("should read before it writes", func() {
				gomock.InOrder(
					target.EXPECT().FetchAddresses(gomock.Any()),
					target.EXPECT().ClaimAddrs(gomock.Any()),
					target.EXPECT().RunRead(gomock.Any()).
						Do(func(ctx *mau.RowContext) {
							ctx.Pbus.ReadData = [2]uint64{9, 9}
						}),
					target.EXPECT().RunWrite(gomock.Any()).
						Do(func(ctx *mau.RowContext) {
							Expect(ctx.Pbus.Data).To(Equal([2]uint64{4, 4}))
						}),
				)

				data, err := e.PbusReadWrite(5, 0, 0, [2]uint64{4, 4}, false, true)

				Expect(err).NotTo(HaveOccurred())
				Expect(data).To(Equal([2]uint64{9, 9}))
			})

			It("should fail on a bad row or column", func() {
				_, err := e.PbusRead(mau.NumLogicalRows, 0, 0, false, false)
				Expect(err).To(MatchError(mau.ErrFatal))

				Expect(e.PbusWrite(0, mau.NumSramCols, 0, [2]uint64{})).
					To(MatchError(mau.ErrFatal))
			})
		})

		It("should sweep the row of an ALU", func() {
			row := NewMockSramRow(mockCtrl)
			Expect(e.SetRow(7, row)).To(Succeed())
			state := mau.AluState{ALU: 1, TickTime: 500}

			gomock.InOrder(
				row.EXPECT().FetchAddresses(gomock.Any()),
				row.EXPECT().ClaimAddrs(gomock.Any()),
				row.EXPECT().RunRead(gomock.Any()),
				row.EXPECT().RunALUsWithState(gomock.Any(), state).
					Do(func(ctx *mau.RowContext, _ mau.AluState) {
						ctx.Sweep.Status = 2
					}),
				row.EXPECT().RunWrite(gomock.Any()),
			)

			status, err := e.DoSweep(1, 500)

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(2))
		})

		It("should clear the stateful memory of an ALU", func() {
			row := NewMockSramRow(mockCtrl)
			Expect(e.SetRow(15, row)).To(Succeed())
			state := mau.AluState{ALU: 3, TickTime: 9}

			gomock.InOrder(
				row.EXPECT().FetchAddresses(gomock.Any()),
				row.EXPECT().ClaimAddrs(gomock.Any()),
				row.EXPECT().RunRead(gomock.Any()),
				row.EXPECT().RunCmpALUsWithState(gomock.Any(), state),
				row.EXPECT().RunALUsWithState(gomock.Any(), state),
				row.EXPECT().RunWrite(gomock.Any()),
			)

			Expect(e.StatefulClear(3, 9)).To(Succeed())
		})

		It("should reject a bad ALU", func() {
			_, err := e.DoSweep(mau.NumAlus, 0)
			Expect(err).To(MatchError(mau.ErrFatal))
			Expect(e.StatefulClear(-1, 0)).To(MatchError(mau.ErrFatal))
		})
	})
})
