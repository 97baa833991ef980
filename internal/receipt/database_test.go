package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-reader/internal/interpret"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	newReceipt := func(id string) *Receipt {
		total := "2.50 EUR"
		return &Receipt{
			ID:          id,
			Filename:    id + "_receipt.txt",
			ContentType: "text/plain",
			Mode:        "line",
			Pages:       []string{sampleText},
			Text:        sampleText,
			Parsed: interpret.ParsedReceipt{
				Version: interpret.Version,
				Total:   &total,
				Items:   []interpret.LineItem{{Name: "Kava", Price: "2.50 EUR"}},
			},
			CreatedAt: time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC),
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("NewBoltDB", func() {
		When("the directory does not exist", func() {
			It("returns the error", func() {
				_, err := NewBoltDB(filepath.Join(tmpDir, "missing", "test.db"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("opening boltdb"))
			})
		})
	})

	Describe("SaveReceipt", func() {
		var (
			receipt *Receipt
			err     error
		)

		BeforeEach(func() {
			receipt = newReceipt("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveReceipt(receipt)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should round-trip the parse result", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Parsed.Items).To(Equal(receipt.Parsed.Items))
				Expect(*saved.Parsed.Total).To(Equal("2.50 EUR"))
				Expect(saved.Parsed.Date).To(BeNil())
				Expect(saved.CreatedAt.Equal(receipt.CreatedAt)).To(BeTrue())
			})
		})

		When("the receipt has no ID", func() {
			BeforeEach(func() {
				receipt.ID = ""
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})

		When("the receipt already exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("test-id"))).To(Succeed())
				receipt.Mode = "flat"
			})

			It("should replace it", func() {
				saved, getErr := db.GetReceipt("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Mode).To(Equal("flat"))
			})
		})
	})

	Describe("GetReceipt", func() {
		var (
			receiptID string
			receipt   *Receipt
			err       error
		)

		JustBeforeEach(func() {
			receipt, err = db.GetReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				Expect(db.SaveReceipt(newReceipt(receiptID))).To(Succeed())
			})

			It("should return the receipt", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipt.ID).To(Equal("test-id"))
				Expect(receipt.Text).To(Equal(sampleText))
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("returns ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
				Expect(receipt).To(BeNil())
			})
		})
	})

	Describe("ListReceipts", func() {
		var (
			receipts []*Receipt
			err      error
		)

		JustBeforeEach(func() {
			receipts, err = db.ListReceipts()
		})

		When("receipts exist", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("id1"))).To(Succeed())
				Expect(db.SaveReceipt(newReceipt("id2"))).To(Succeed())
			})

			It("should return all receipts", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty, non-nil list", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).NotTo(BeNil())
				Expect(receipts).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReceipt", func() {
		var (
			receiptID string
			err       error
		)

		JustBeforeEach(func() {
			err = db.DeleteReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				Expect(db.SaveReceipt(newReceipt(receiptID))).To(Succeed())
			})

			It("should remove the receipt", func() {
				Expect(err).NotTo(HaveOccurred())
				_, getErr := db.GetReceipt(receiptID)
				Expect(getErr).To(MatchError(ErrNotFound))
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("returns ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("reopening", func() {
		It("should keep saved receipts", func() {
			Expect(db.SaveReceipt(newReceipt("persisted"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())
			saved, err := db.GetReceipt("persisted")
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Filename).To(Equal("persisted_receipt.txt"))
		})
	})
})
