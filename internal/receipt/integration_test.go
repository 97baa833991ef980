package receipt

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/receipt-reader/internal/interpret"
	"github.com/zombor/receipt-reader/internal/scanning"
)

var _ = Describe("Receipt workflow", func() {
	var (
		tmpDir      string
		db          *BoltDB
		ghttpServer *ghttp.Server
	)

	const invoice = "RAČUN št. 2024-118\n" +
		"Datum: 05.03.2024\n" +
		"Svetovanje\n" +
		"marec 2024 40,00\n" +
		"Osnova za DDV 40,00\n" +
		"DDV 22% 8,80\n" +
		"ZA PLAČILO 48,80 €\f" +
		"Hvala za zaupanje"

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		db, err = NewBoltDB(filepath.Join(tmpDir, "receipts.db"))
		Expect(err).NotTo(HaveOccurred())
		store, err := NewLocalStorage(filepath.Join(tmpDir, "files"))
		Expect(err).NotTo(HaveOccurred())
		source, err := scanning.NewExtractor(scanning.EngineNative)
		Expect(err).NotTo(HaveOccurred())

		service := NewService(db, source, store, interpret.NewParser(interpret.DefaultConfig()))
		server := NewServer(service, BasicAuth{})
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP, server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
		db.Close()
	})

	It("uploads, lists and downloads a text receipt", func() {
		buf := &bytes.Buffer{}
		w := multipart.NewWriter(buf)
		part, err := w.CreateFormFile("file", "racun-118.txt")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte(invoice))
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())

		resp, err := http.Post(ghttpServer.URL()+"/api/receipts", w.FormDataContentType(), buf)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created Receipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.ID).NotTo(BeEmpty())
		Expect(created.Pages).To(HaveLen(2))
		Expect(created.Text).To(ContainSubstring("--- Page 2 ---"))
		Expect(*created.Parsed.Date).To(Equal("2024-03-05"))
		Expect(*created.Parsed.Total).To(Equal("48.80 €"))

		listResp, err := http.Get(ghttpServer.URL() + "/api/receipts")
		Expect(err).NotTo(HaveOccurred())
		defer listResp.Body.Close()
		var listed []*Receipt
		Expect(json.NewDecoder(listResp.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].ID).To(Equal(created.ID))

		fileResp, err := http.Get(ghttpServer.URL() + "/api/receipts/" + created.ID + "/file")
		Expect(err).NotTo(HaveOccurred())
		defer fileResp.Body.Close()
		data, err := io.ReadAll(fileResp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(invoice))
		Expect(fileResp.Header.Get("Content-Type")).To(Equal("text/plain"))
	})
})
