package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveAlias", func() {
	It("extracts the alias from a bare receipts address", func() {
		Expect(ResolveAlias("jane7@receipts.snapfolio.app")).To(Equal("jane7"))
	})

	It("accepts the alternate domain suffix", func() {
		Expect(ResolveAlias("jane7@receipts.snapfolio.com")).To(Equal("jane7"))
	})

	It("handles display names and angle brackets", func() {
		Expect(ResolveAlias(`"Jane's Receipts" <jane7@receipts.snapfolio.app>`)).To(Equal("jane7"))
	})

	It("lowercases the alias", func() {
		Expect(ResolveAlias("Jane7@Receipts.Snapfolio.App")).To(Equal("jane7"))
	})

	It("falls back to the local part for other domains", func() {
		Expect(ResolveAlias("jane7@forwarding.example.com")).To(Equal("jane7"))
	})

	It("returns empty for a local part that is not a plain token", func() {
		Expect(ResolveAlias("jane.doe+tag@example.com")).To(Equal(""))
	})

	It("returns empty for text with no address", func() {
		Expect(ResolveAlias("not an address")).To(Equal(""))
	})

	It("returns empty for an empty header", func() {
		Expect(ResolveAlias("")).To(Equal(""))
	})
})
