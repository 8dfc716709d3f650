package bench

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/microsoft/hat/errors"
)

var csvHeader = []string{
	"function_name",
	"iterations",
	"mean_duration_in_sec",
	"median_of_means_in_sec",
	"mean_of_small_means_in_sec",
	"robust_mean_in_sec",
	"min_of_means_in_sec",
	"error",
}

// WriteCSV renders the results as a CSV report, one row per function.
// Functions that failed to benchmark carry the error text in the last
// column and zeros elsewhere.
func WriteCSV(w io.Writer, results []FunctionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(errors.PhaseBench, errors.KindInvalidData, err, "writing CSV header")
	}

	for _, fr := range results {
		row := make([]string, len(csvHeader))
		row[0] = fr.Function
		if fr.Result != nil {
			r := fr.Result
			row[1] = strconv.FormatInt(r.Iterations, 10)
			row[2] = formatSeconds(r.Mean.Seconds())
			row[3] = formatSeconds(r.MedianOfMeans.Seconds())
			row[4] = formatSeconds(r.MeanOfSmallMeans.Seconds())
			row[5] = formatSeconds(r.RobustMean.Seconds())
			row[6] = formatSeconds(r.MinOfMeans.Seconds())
		}
		if fr.Err != nil {
			row[7] = fr.Err.Error()
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(errors.PhaseBench, errors.KindInvalidData, err, "writing CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.PhaseBench, errors.KindInvalidData, err, "flushing CSV report")
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'g', 9, 64)
}
