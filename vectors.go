// 运行 script_tests.json 格式的测试向量文件

package bpfsscript

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/qinglongcn/bpfsscript/txscript"
	"golang.org/x/sync/errgroup"
)

// VectorReport 汇总一次向量运行的结果
type VectorReport struct {
	Total    int     // 向量总数
	Passed   int     // 结果符合期望的向量数
	Failures []error // 不符合期望的向量
}

// RunScriptTests 解码并并行运行测试向量，workers 小于等于 0 时不限制并发
func RunScriptTests(ctx context.Context, data []byte, sigCache *txscript.SigCache,
	workers int) (*VectorReport, error) {

	tests, err := txscript.ParseScriptTests(data)
	if err != nil {
		return nil, errors.Wrap(err, "解码测试向量")
	}

	report := &VectorReport{Total: len(tests)}
	failures := make([]error, len(tests))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	var mu sync.Mutex
	for i, test := range tests {
		i, test := i, test
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			failures[i] = test.Run(sigCache)
			if failures[i] == nil {
				mu.Lock()
				report.Passed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 保持文件中的顺序
	for _, err := range failures {
		if err != nil {
			report.Failures = append(report.Failures, err)
		}
	}
	return report, nil
}

// RunScriptTestsFile 从文件存储读取并运行测试向量
func (fs *FileStore) RunScriptTestsFile(ctx context.Context, name string,
	sigCache *txscript.SigCache, workers int) (*VectorReport, error) {

	data, err := fs.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return RunScriptTests(ctx, data, sigCache, workers)
}
