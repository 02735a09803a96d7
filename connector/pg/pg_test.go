package pg

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"errors"
	"time"

	"github.com/go-kit/log"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/nrfta/go-pipetest"
	"go.uber.org/mock/gomock"
)

type testRecord struct {
	Word string
}

var _ = Describe("Sink", func() {
	var (
		mockCtrl = gomock.NewController(GinkgoT())
		mockDB   *Mockexecer
	)

	BeforeEach(func() {
		mockDB = NewMockexecer(mockCtrl)
	})

	Describe("NewSink", func() {
		It("should create the destination table up front", func() {
			mockDB.EXPECT().
				ExecContext(gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, query string, args ...any) (sql.Result, error) {
					Expect(query).To(ContainSubstring("CREATE TABLE IF NOT EXISTS"))
					Expect(query).To(ContainSubstring(`"results"`))
					return nil, nil
				})

			subject, err := NewSink[testRecord](mockDB, log.NewNopLogger(), WithTableName[testRecord]("results"))
			Expect(err).To(Succeed())
			Expect(subject).ToNot(BeNil())
		})

		It("should fail when the table cannot be created", func() {
			mockDB.EXPECT().
				ExecContext(gomock.Any(), gomock.Any()).
				Return(nil, errors.New("permission denied"))

			_, err := NewSink[testRecord](mockDB, log.NewNopLogger())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("#Consume", func() {
		var subject *Sink[testRecord]

		BeforeEach(func() {
			mockDB.EXPECT().ExecContext(gomock.Any(), gomock.Any()).Return(nil, nil)

			var err error
			subject, err = NewSink[testRecord](mockDB, log.NewNopLogger())
			Expect(err).To(Succeed())
		})

		It("should insert one gob-encoded row per record", func() {
			mockDB.EXPECT().
				ExecContext(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(ctx context.Context, query string, args ...any) (sql.Result, error) {
					Expect(query).To(ContainSubstring("INSERT INTO"))
					Expect(args).To(HaveLen(3))

					Expect(args[0]).To(HaveLen(20))

					var decoded testRecord
					raw, ok := args[1].([]byte)
					Expect(ok).To(BeTrue())
					Expect(gob.NewDecoder(bytes.NewReader(raw)).Decode(&decoded)).To(Succeed())
					Expect(decoded).To(Equal(testRecord{Word: "hello"}))

					Expect(args[2]).To(BeAssignableToTypeOf(time.Time{}))
					return nil, nil
				})

			err := subject.Consume(context.Background(), testRecord{Word: "hello"})
			Expect(err).To(Succeed())
		})

		It("should surface an interrupted insert as adapter shutdown", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			mockDB.EXPECT().
				ExecContext(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, context.Canceled)

			err := subject.Consume(ctx, testRecord{Word: "hello"})
			Expect(errors.Is(err, pipetest.ErrInterrupted)).To(BeTrue())
		})

		It("should report insert failures rather than dropping the record", func() {
			mockDB.EXPECT().
				ExecContext(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, errors.New("connection reset"))

			err := subject.Consume(context.Background(), testRecord{Word: "hello"})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, pipetest.ErrInterrupted)).To(BeFalse())
		})
	})
})
