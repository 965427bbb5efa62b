// SPDX-FileCopyrightText: 2024 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package elasticsearch

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/gardener/es-timeslicer/pkg/apis/config"
)

// Connect creates a new client and verifies that the cluster is reachable and recent enough.
// The check is skipped if cfg.SkipVersionTest is set.
func Connect(ctx context.Context, log logr.Logger, cfg config.ElasticSearch) (Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create elasticsearch client")
	}
	if cfg.SkipVersionTest {
		log.V(3).Info("skipping elasticsearch version test")
		return c, nil
	}
	info, err := c.Info(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to get elasticsearch cluster info")
	}
	if err := CheckVersion(info.Version.Number); err != nil {
		return nil, err
	}
	log.V(3).Info("connected to elasticsearch", "cluster", info.ClusterName, "version", info.Version.Number)
	return c, nil
}

// CheckVersion validates that version satisfies config.MinimumVersion.
// Pre-release suffixes like -SNAPSHOT are ignored.
func CheckVersion(version string) error {
	constraint, err := semver.NewConstraint(config.MinimumVersion)
	if err != nil {
		return err
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.Wrapf(err, "unable to parse elasticsearch version %q", version)
	}
	release := semver.New(v.Major(), v.Minor(), v.Patch(), "", "")
	if !constraint.Check(release) {
		return errors.Errorf("elasticsearch version %s does not satisfy %q", version, config.MinimumVersion)
	}
	return nil
}
